package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// FilesystemProvider keeps one <bookID>.epub file per book under a base
// directory. This is the privileged provider: it needs a writable data dir.
type FilesystemProvider struct {
	baseDir string
}

// NewFilesystemProvider creates the provider and ensures the base directory
// exists.
func NewFilesystemProvider(baseDir string) (*FilesystemProvider, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create books dir: %w", err)
	}
	return &FilesystemProvider{baseDir: baseDir}, nil
}

// GetBytes reads a book's archive from disk.
func (p *FilesystemProvider) GetBytes(ctx context.Context, bookID string) ([]byte, error) {
	data, err := os.ReadFile(p.path(bookID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFoundf("no archive for book %s", bookID)
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return data, nil
}

// SaveBytes writes a book's archive to disk. The write goes through a temp
// file and rename so a crash mid-write never leaves a torn archive behind.
func (p *FilesystemProvider) SaveBytes(ctx context.Context, bookID string, data []byte) error {
	tmp, err := os.CreateTemp(p.baseDir, bookID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path(bookID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store archive: %w", err)
	}
	return nil
}

// DeleteBytes removes a book's archive. Deleting a missing archive is fine.
func (p *FilesystemProvider) DeleteBytes(ctx context.Context, bookID string) error {
	if err := os.Remove(p.path(bookID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete archive: %w", err)
	}
	return nil
}

// Exists checks whether an archive is on disk for a book.
func (p *FilesystemProvider) Exists(ctx context.Context, bookID string) (bool, error) {
	_, err := os.Stat(p.path(bookID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat archive: %w", err)
	}
	return true, nil
}

// Mode implements Provider.
func (p *FilesystemProvider) Mode() string { return "fs" }

func (p *FilesystemProvider) path(bookID string) string {
	return filepath.Join(p.baseDir, bookID+".epub")
}
