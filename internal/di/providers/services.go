package providers

import (
	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/engine"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/service"
)

// ProvideLibraryService provides the library service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	provider := do.MustInvoke[archive.Provider](i)
	processor := do.MustInvoke[*covers.Processor](i)
	factory := do.MustInvoke[engine.Factory](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	toasts := do.MustInvoke[*NotifyCenterHandle](i)

	return service.NewLibraryService(
		storeHandle.Store,
		provider,
		processor,
		factory,
		indexHandle.Index,
		toasts.Center,
		log.Logger,
	), nil
}

// ProvideCollectionService provides the collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewCollectionService(storeHandle.Store, log.Logger), nil
}

// ProvidePreferencesService provides the preferences service. The reader
// session is its rendition applier, so preference edits restyle whatever
// book is currently displayed.
func ProvidePreferencesService(i do.Injector) (*service.PreferencesService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sessionHandle := do.MustInvoke[*SessionHandle](i)

	return service.NewPreferencesService(storeHandle.Store, sessionHandle.Session, log.Logger), nil
}
