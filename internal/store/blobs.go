package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Archive blobs back the document-store byte provider. They are raw bytes,
// not JSON; a several-megabyte EPUB has no business round-tripping through
// a codec.
const blobPrefix = "blob:"

// SaveBlob stores a book's raw archive bytes.
func (s *Store) SaveBlob(ctx context.Context, bookID string, data []byte) error {
	key := []byte(blobPrefix + bookID)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("save blob: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("archive blob saved", "book_id", bookID, "bytes", len(data))
	}
	return nil
}

// GetBlob returns a book's raw archive bytes.
func (s *Store) GetBlob(ctx context.Context, bookID string) ([]byte, error) {
	key := []byte(blobPrefix + bookID)

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return data, nil
}

// DeleteBlob removes a book's archive bytes.
func (s *Store) DeleteBlob(ctx context.Context, bookID string) error {
	if err := s.delete([]byte(blobPrefix + bookID)); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// BlobExists checks whether archive bytes are stored for a book.
func (s *Store) BlobExists(ctx context.Context, bookID string) (bool, error) {
	return s.exists([]byte(blobPrefix + bookID))
}
