// Package domain contains the core business entities and domain logic for the Lumina EPUB library.
package domain

import (
	"slices"
	"time"
)

// Progress bounds. Progress is a whole percentage.
const (
	ProgressMin      = 0
	ProgressMax      = 100
	ProgressFinished = 100
)

// Book represents an EPUB in the library.
type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author,omitempty"`
	CoverPath     string     `json:"cover_path,omitempty"`
	CoverBlurHash string     `json:"cover_blur_hash,omitempty"`
	// ContentHash is the SHA-256 of the archive bytes, set at import.
	// Two books with the same hash are the same file.
	ContentHash string `json:"content_hash,omitempty"`
	CFI         string `json:"cfi,omitempty"`
	Progress      int        `json:"progress"`
	AddedAt       time.Time  `json:"added_at"`
	LastOpened    *time.Time `json:"last_opened,omitempty"`
	IsFavorite    bool       `json:"is_favorite"`
	CollectionIDs []string   `json:"collection_ids,omitempty"`
}

// NewBook creates a book with the given identity and metadata.
func NewBook(bookID, title, author string) *Book {
	return &Book{
		ID:      bookID,
		Title:   title,
		Author:  author,
		AddedAt: time.Now(),
	}
}

// SetPosition records the reading position and clamped progress percentage.
func (b *Book) SetPosition(cfi string, progress int) {
	b.CFI = cfi
	b.Progress = ClampProgress(progress)
}

// MarkOpened stamps the book as opened now.
func (b *Book) MarkOpened() {
	now := time.Now()
	b.LastOpened = &now
}

// IsFinished reports whether the book has been read to the end.
func (b *Book) IsFinished() bool {
	return b.Progress >= ProgressFinished
}

// InProgress reports whether reading has started but not finished.
func (b *Book) InProgress() bool {
	return b.Progress > ProgressMin && b.Progress < ProgressFinished
}

// JoinCollection adds a collection ID to the book if not already present.
func (b *Book) JoinCollection(collectionID string) bool {
	if slices.Contains(b.CollectionIDs, collectionID) {
		return false // Already present
	}
	b.CollectionIDs = append(b.CollectionIDs, collectionID)
	return true
}

// LeaveCollection removes a collection ID from the book.
func (b *Book) LeaveCollection(collectionID string) bool {
	for i, cid := range b.CollectionIDs {
		if cid == collectionID {
			b.CollectionIDs = append(b.CollectionIDs[:i], b.CollectionIDs[i+1:]...)
			return true
		}
	}
	return false
}

// InCollection checks if the book belongs to a collection.
func (b *Book) InCollection(collectionID string) bool {
	return slices.Contains(b.CollectionIDs, collectionID)
}

// ClampProgress bounds a percentage into [ProgressMin, ProgressMax].
func ClampProgress(progress int) int {
	if progress < ProgressMin {
		return ProgressMin
	}
	if progress > ProgressMax {
		return ProgressMax
	}
	return progress
}
