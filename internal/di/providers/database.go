package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/search"
	"github.com/luminareader/lumina-server/internal/service"
	"github.com/luminareader/lumina-server/internal/store"
)

// StoreHandle wraps the badger store for explicit shutdown ordering:
// everything else flushes through it, so it closes last from main.
type StoreHandle struct {
	Store *store.Store
}

// Shutdown implements do.Shutdowner.
func (h *StoreHandle) Shutdown() error {
	return h.Store.Close()
}

// ProvideStore provides the document store, wired to emit change events
// into the SSE stream.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	st, err := store.New(cfg.DBDir(), log.Logger, sseHandle.Manager)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &StoreHandle{Store: st}, nil
}

// SearchIndexHandle wraps the bleve index.
type SearchIndexHandle struct {
	Index *search.LibraryIndex
}

// Shutdown implements do.Shutdowner.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Index.Close()
}

// ProvideSearchIndex provides the library search index and hooks it into
// the store so every book write keeps the projection current.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewLibraryIndex(search.Options{
		DataPath: cfg.SearchDir(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	storeHandle.Store.SetSearchIndexer(index)

	return &SearchIndexHandle{Index: index}, nil
}

// Bootstrap runs first-start and consistency work: seeding the smart
// collections and resyncing the search projection when it drifted from
// the store (a crash between a store write and the index hook, or a
// deleted index directory).
type Bootstrap struct{}

// ProvideBootstrap provides the startup bootstrap.
func ProvideBootstrap(i do.Injector) (*Bootstrap, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	collections := do.MustInvoke[*service.CollectionService](i)

	ctx := context.Background()
	if err := collections.SeedDefaults(ctx); err != nil {
		return nil, fmt.Errorf("seed collections: %w", err)
	}

	books, err := storeHandle.Store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books for index check: %w", err)
	}
	indexed, err := indexHandle.Index.DocumentCount()
	if err != nil {
		return nil, fmt.Errorf("count indexed books: %w", err)
	}
	if uint64(len(books)) != indexed {
		log.Info("search index out of sync, rebuilding",
			"books", len(books), "indexed", indexed)
		if err := indexHandle.Index.Rebuild(); err != nil {
			return nil, fmt.Errorf("rebuild search index: %w", err)
		}
		if err := indexHandle.Index.IndexBooks(books); err != nil {
			return nil, fmt.Errorf("reindex books: %w", err)
		}
	}

	return &Bootstrap{}, nil
}
