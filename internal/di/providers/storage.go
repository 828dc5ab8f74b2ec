package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/media/covers"
)

// ProvideArchiveProvider provides the EPUB archive provider, filesystem
// or store-backed depending on configuration.
func ProvideArchiveProvider(i do.Injector) (archive.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	provider, err := archive.NewProvider(cfg, storeHandle.Store, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("create archive provider: %w", err)
	}
	return provider, nil
}

// ProvideCoverStorage provides the on-disk cover storage.
func ProvideCoverStorage(i do.Injector) (*covers.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)

	storage, err := covers.NewStorage(cfg.CoversDir())
	if err != nil {
		return nil, fmt.Errorf("create cover storage: %w", err)
	}
	return storage, nil
}

// ProvideCoverProcessor provides the cover extraction pipeline.
func ProvideCoverProcessor(i do.Injector) (*covers.Processor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storage := do.MustInvoke[*covers.Storage](i)

	return covers.NewProcessor(storage, log.Logger), nil
}
