package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/luminareader/lumina-server/internal/domain"
)

// Bookmarks and highlights are stored as one list per book. The reader
// session owns ordering: bookmarks newest-first, highlights in creation
// order. The store round-trips the lists untouched.
const (
	bookmarksPrefix  = "bookmarks:"
	highlightsPrefix = "highlights:"
)

// GetBookmarks returns the bookmark list for a book. A book with no
// bookmarks yet yields an empty list, not an error.
func (s *Store) GetBookmarks(ctx context.Context, bookID string) ([]*domain.Bookmark, error) {
	key := []byte(bookmarksPrefix + bookID)

	var bookmarks []*domain.Bookmark
	err := s.get(key, &bookmarks)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return []*domain.Bookmark{}, nil
		}
		return nil, fmt.Errorf("get bookmarks: %w", err)
	}
	return bookmarks, nil
}

// SaveBookmarks replaces the bookmark list for a book.
func (s *Store) SaveBookmarks(ctx context.Context, bookID string, bookmarks []*domain.Bookmark) error {
	key := []byte(bookmarksPrefix + bookID)
	if err := s.set(key, bookmarks); err != nil {
		return fmt.Errorf("save bookmarks: %w", err)
	}
	return nil
}

// DeleteBookmarks removes the bookmark list for a book.
func (s *Store) DeleteBookmarks(ctx context.Context, bookID string) error {
	if err := s.delete([]byte(bookmarksPrefix + bookID)); err != nil {
		return fmt.Errorf("delete bookmarks: %w", err)
	}
	return nil
}

// GetHighlights returns the highlight list for a book. A book with no
// highlights yet yields an empty list, not an error.
func (s *Store) GetHighlights(ctx context.Context, bookID string) ([]*domain.Highlight, error) {
	key := []byte(highlightsPrefix + bookID)

	var highlights []*domain.Highlight
	err := s.get(key, &highlights)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return []*domain.Highlight{}, nil
		}
		return nil, fmt.Errorf("get highlights: %w", err)
	}
	return highlights, nil
}

// SaveHighlights replaces the highlight list for a book.
func (s *Store) SaveHighlights(ctx context.Context, bookID string, highlights []*domain.Highlight) error {
	key := []byte(highlightsPrefix + bookID)
	if err := s.set(key, highlights); err != nil {
		return fmt.Errorf("save highlights: %w", err)
	}
	return nil
}

// DeleteHighlights removes the highlight list for a book.
func (s *Store) DeleteHighlights(ctx context.Context, bookID string) error {
	if err := s.delete([]byte(highlightsPrefix + bookID)); err != nil {
		return fmt.Errorf("delete highlights: %w", err)
	}
	return nil
}
