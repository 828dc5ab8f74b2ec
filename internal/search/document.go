// Package search maintains a full-text index over the library using Bleve.
// Book titles and authors are searchable with English stemming, fuzzy
// matching for typo tolerance, and prefix expansion for find-as-you-type.
// Favorites, collection membership, and reading progress are filterable.
package search

import (
	"github.com/luminareader/lumina-server/internal/domain"
)

// BookDocument is the index projection of a library book.
//
// The store stays the source of truth. A document carries only what the
// library view needs to render a hit without a follow-up read: identity,
// display fields, and the filterable bits.
type BookDocument struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author,omitempty"`
	Favorite      bool     `json:"favorite"`
	Progress      int      `json:"progress"`
	CollectionIDs []string `json:"collection_ids,omitempty"`

	// Timestamps for sorting. Unix millis; LastOpened is zero for a book
	// that has never been opened.
	AddedAt    int64 `json:"added_at"`
	LastOpened int64 `json:"last_opened,omitempty"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve indexes Go struct field names as written (capitalized), but our
// mapping declares lowercase names, so we convert explicitly.
func (d *BookDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":       d.ID,
		"title":    d.Title,
		"favorite": d.Favorite,
		"progress": d.Progress,
		"added_at": d.AddedAt,
	}

	// Optional fields - only add if non-empty
	if d.Author != "" {
		m["author"] = d.Author
	}
	if len(d.CollectionIDs) > 0 {
		m["collection_ids"] = d.CollectionIDs
	}
	if d.LastOpened > 0 {
		m["last_opened"] = d.LastOpened
	}

	return m
}

// NewBookDocument projects a domain book into its index document.
func NewBookDocument(book *domain.Book) *BookDocument {
	doc := &BookDocument{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		Favorite:      book.IsFavorite,
		Progress:      book.Progress,
		CollectionIDs: book.CollectionIDs,
		AddedAt:       book.AddedAt.UnixMilli(),
	}

	if book.LastOpened != nil {
		doc.LastOpened = book.LastOpened.UnixMilli()
	}

	return doc
}
