package archive

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/luminareader/lumina-server/internal/config"
)

// NewProvider selects a byte provider from configuration. In auto mode the
// books directory is probed for writability; an unwritable directory selects
// the store provider, which is an ordinary mode of operation for sandboxed
// installs.
func NewProvider(cfg *config.Config, blobs BlobStore, logger *slog.Logger) (Provider, error) {
	switch cfg.Data.ProviderMode {
	case config.ProviderFilesystem:
		return NewFilesystemProvider(cfg.BooksDir())

	case config.ProviderStore:
		return NewStoreProvider(blobs), nil

	case config.ProviderAuto:
		if dirWritable(cfg.BooksDir()) {
			if logger != nil {
				logger.Info("byte provider selected", "mode", "fs", "dir", cfg.BooksDir())
			}
			return NewFilesystemProvider(cfg.BooksDir())
		}
		if logger != nil {
			logger.Info("byte provider selected", "mode", "store")
		}
		return NewStoreProvider(blobs), nil

	default:
		return nil, fmt.Errorf("unknown provider mode: %s", cfg.Data.ProviderMode)
	}
}

// dirWritable reports whether we can create files under dir, creating the
// directory itself if needed.
func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}
