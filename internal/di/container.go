// Package di provides dependency injection configuration for the Lumina server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/di/providers"
	"github.com/luminareader/lumina-server/internal/engine"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/reader"
	"github.com/luminareader/lumina-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideBootstrap)

	// Storage layer
	do.Provide(injector, providers.ProvideArchiveProvider)
	do.Provide(injector, providers.ProvideCoverStorage)
	do.Provide(injector, providers.ProvideCoverProcessor)

	// Rendition engine
	do.Provide(injector, providers.ProvideEngineFactory)

	// Notifications
	do.Provide(injector, providers.ProvideNotifyCenter)

	// Reader session
	do.Provide(injector, providers.ProvideSurface)
	do.Provide(injector, providers.ProvideSession)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvidePreferencesService)

	// Workers
	do.Provide(injector, providers.ProvideImportWorker)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[archive.Provider](injector)
	_ = do.MustInvoke[*covers.Storage](injector)
	_ = do.MustInvoke[*covers.Processor](injector)
	_ = do.MustInvoke[engine.Factory](injector)
	_ = do.MustInvoke[*providers.NotifyCenterHandle](injector)
	_ = do.MustInvoke[*reader.Surface](injector)
	_ = do.MustInvoke[*providers.SessionHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.LibraryService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	_ = do.MustInvoke[*service.PreferencesService](injector)

	// Seeding and index consistency run after the services they use.
	_ = do.MustInvoke[*providers.Bootstrap](injector)

	// Workers
	_ = do.MustInvoke[*providers.ImportWorkerHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
