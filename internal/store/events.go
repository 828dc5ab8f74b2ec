package store

import "github.com/luminareader/lumina-server/internal/domain"

// Store change events, consumed by the SSE layer.

// BookCreated is emitted after a book record is created.
type BookCreated struct {
	Book *domain.Book `json:"book"`
}

// BookUpdated is emitted after a book record changes.
type BookUpdated struct {
	Book *domain.Book `json:"book"`
}

// BookDeleted is emitted after a book record is removed.
type BookDeleted struct {
	BookID string `json:"book_id"`
}

// LibraryCleared is emitted after the book list is cleared.
type LibraryCleared struct {
	Removed int `json:"removed"`
}

// CollectionChanged is emitted after any collection write.
type CollectionChanged struct {
	Collection *domain.Collection `json:"collection,omitempty"`
	Deleted    string             `json:"deleted,omitempty"`
}

// PreferencesUpdated is emitted after preferences are saved.
type PreferencesUpdated struct {
	Preferences *domain.Preferences `json:"preferences"`
}
