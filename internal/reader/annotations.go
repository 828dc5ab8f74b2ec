package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/luminareader/lumina-server/internal/domain"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/id"
)

// AddBookmark bookmarks the current position. The list is ordered
// newest-first. Fails with an invalid-position error when the engine
// cannot report where it is, which happens transiently right after a page
// turn; callers retry instead of treating it as fatal.
func (s *Session) AddBookmark(ctx context.Context, label string) (*domain.Bookmark, error) {
	s.mu.Lock()
	if s.state != StateDisplaying || s.rendition == nil {
		s.mu.Unlock()
		return nil, apperr.NoActiveBook("open a book to add a bookmark")
	}

	loc, err := s.rendition.CurrentLocation()
	if err != nil {
		s.mu.Unlock()
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Wrap(err, apperr.CodeInvalidPosition, "read current position")
	}

	if label == "" {
		if loc.Page > 0 {
			label = fmt.Sprintf("Page %d", loc.Page)
		} else {
			label = fmt.Sprintf("%d%%", progressPercent(loc.Percentage))
		}
	}

	bookmark := domain.NewBookmark(id.MustGenerate(id.PrefixBookmark), loc.CFI, label)
	s.bookmarks = append([]*domain.Bookmark{bookmark}, s.bookmarks...)
	bookID := s.activeBookID
	snapshot := append([]*domain.Bookmark(nil), s.bookmarks...)
	s.mu.Unlock()

	if err := s.store.SaveBookmarks(ctx, bookID, snapshot); err != nil {
		if s.logger != nil {
			s.logger.Warn("persist bookmarks failed", "book_id", bookID, "error", err)
		}
		return bookmark, apperr.Wrap(err, apperr.CodeInternal, "persist bookmarks")
	}
	return bookmark, nil
}

// RemoveBookmark deletes a bookmark by id.
func (s *Session) RemoveBookmark(ctx context.Context, bookmarkID string) error {
	s.mu.Lock()
	if s.state != StateDisplaying {
		s.mu.Unlock()
		return apperr.NoActiveBook("open a book to remove a bookmark")
	}

	idx := -1
	for i, b := range s.bookmarks {
		if b.ID == bookmarkID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return apperr.NotFoundf("bookmark %s not found", bookmarkID)
	}
	s.bookmarks = append(s.bookmarks[:idx], s.bookmarks[idx+1:]...)
	bookID := s.activeBookID
	snapshot := append([]*domain.Bookmark(nil), s.bookmarks...)
	s.mu.Unlock()

	if err := s.store.SaveBookmarks(ctx, bookID, snapshot); err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "persist bookmarks")
	}
	return nil
}

// Bookmarks returns the open book's bookmarks, newest first.
func (s *Session) Bookmarks() []*domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Bookmark(nil), s.bookmarks...)
}

// AddHighlight anchors a highlight over a selection. The list keeps
// creation order. The CFI range is an opaque engine token; the session
// validates presence, not shape.
func (s *Session) AddHighlight(ctx context.Context, cfi, text, color, note string) (*domain.Highlight, error) {
	if cfi == "" {
		return nil, apperr.Validation("highlight cfi is required")
	}

	s.mu.Lock()
	if s.state != StateDisplaying || s.rendition == nil {
		s.mu.Unlock()
		return nil, apperr.NoActiveBook("open a book to add a highlight")
	}

	highlight := domain.NewHighlight(id.MustGenerate(id.PrefixHighlight), cfi, text, color)
	highlight.Note = note
	s.highlights = append(s.highlights, highlight)
	bookID := s.activeBookID
	rendition := s.rendition
	snapshot := append([]*domain.Highlight(nil), s.highlights...)
	s.mu.Unlock()

	// Visual paint is best-effort; the stored highlight is the durable one.
	if err := rendition.Annotations().Add("highlight", cfi); err != nil && s.logger != nil {
		s.logger.Warn("paint highlight failed", "highlight_id", highlight.ID, "error", err)
	}

	if err := s.store.SaveHighlights(ctx, bookID, snapshot); err != nil {
		if s.logger != nil {
			s.logger.Warn("persist highlights failed", "book_id", bookID, "error", err)
		}
		return highlight, apperr.Wrap(err, apperr.CodeInternal, "persist highlights")
	}
	return highlight, nil
}

// RemoveHighlight deletes a highlight by id and removes its visual paint.
func (s *Session) RemoveHighlight(ctx context.Context, highlightID string) error {
	s.mu.Lock()
	if s.state != StateDisplaying {
		s.mu.Unlock()
		return apperr.NoActiveBook("open a book to remove a highlight")
	}

	idx := -1
	for i, h := range s.highlights {
		if h.ID == highlightID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return apperr.NotFoundf("highlight %s not found", highlightID)
	}
	removed := s.highlights[idx]
	s.highlights = append(s.highlights[:idx], s.highlights[idx+1:]...)
	bookID := s.activeBookID
	rendition := s.rendition
	snapshot := append([]*domain.Highlight(nil), s.highlights...)
	s.mu.Unlock()

	if rendition != nil {
		if err := rendition.Annotations().Remove(removed.CFI); err != nil && s.logger != nil {
			s.logger.Warn("unpaint highlight failed", "highlight_id", highlightID, "error", err)
		}
	}

	if err := s.store.SaveHighlights(ctx, bookID, snapshot); err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "persist highlights")
	}
	return nil
}

// Highlights returns the open book's highlights in creation order.
func (s *Session) Highlights() []*domain.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Highlight(nil), s.highlights...)
}
