package api

import "github.com/luminareader/lumina-server/internal/service"

// Services groups the business services the handlers delegate to.
type Services struct {
	Library     *service.LibraryService
	Collections *service.CollectionService
	Preferences *service.PreferencesService
}
