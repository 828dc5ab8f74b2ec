package archive

import (
	"context"
	"errors"

	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/store"
)

// BlobStore is the slice of the document store the provider needs.
type BlobStore interface {
	SaveBlob(ctx context.Context, bookID string, data []byte) error
	GetBlob(ctx context.Context, bookID string) ([]byte, error)
	DeleteBlob(ctx context.Context, bookID string) error
	BlobExists(ctx context.Context, bookID string) (bool, error)
}

// StoreProvider keeps archives as blobs in the document store. It is the
// fallback when no writable data directory is available.
type StoreProvider struct {
	blobs BlobStore
}

// NewStoreProvider wraps a blob store as a byte provider.
func NewStoreProvider(blobs BlobStore) *StoreProvider {
	return &StoreProvider{blobs: blobs}
}

// GetBytes returns a book's archive from the store.
func (p *StoreProvider) GetBytes(ctx context.Context, bookID string) ([]byte, error) {
	data, err := p.blobs.GetBlob(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			return nil, apperr.NotFoundf("no archive for book %s", bookID)
		}
		return nil, err
	}
	return data, nil
}

// SaveBytes stores a book's archive.
func (p *StoreProvider) SaveBytes(ctx context.Context, bookID string, data []byte) error {
	return p.blobs.SaveBlob(ctx, bookID, data)
}

// DeleteBytes removes a book's archive.
func (p *StoreProvider) DeleteBytes(ctx context.Context, bookID string) error {
	return p.blobs.DeleteBlob(ctx, bookID)
}

// Exists checks whether an archive is stored for a book.
func (p *StoreProvider) Exists(ctx context.Context, bookID string) (bool, error) {
	return p.blobs.BlobExists(ctx, bookID)
}

// Mode implements Provider.
func (p *StoreProvider) Mode() string { return "store" }
