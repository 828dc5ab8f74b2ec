// Package archive stores and retrieves raw EPUB bytes. Two providers exist:
// a filesystem provider used when the data directory is writable, and a
// document-store provider that keeps archives as blobs. Callers never know
// which one is active; running without filesystem access is a normal mode,
// not a degraded one.
package archive

import "context"

// Provider is the byte provider contract. GetBytes returns a typed
// not-found error when no archive exists for the book.
type Provider interface {
	GetBytes(ctx context.Context, bookID string) ([]byte, error)
	SaveBytes(ctx context.Context, bookID string, data []byte) error
	DeleteBytes(ctx context.Context, bookID string) error
	Exists(ctx context.Context, bookID string) (bool, error)

	// Mode names the active provider for logs and diagnostics.
	Mode() string
}
