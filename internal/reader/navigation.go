package reader

import (
	"context"
	"errors"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/engine"
	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// Navigation commands arriving before the book is displaying are dropped,
// not queued: the engine has no valid position to navigate from yet.

// NextPage advances one page (two in two-page view).
func (s *Session) NextPage(ctx context.Context) error {
	rendition, ok := s.displayingRendition()
	if !ok {
		return nil
	}
	if err := rendition.Next(ctx); err != nil {
		return s.engineFailure(err, "next page")
	}
	return nil
}

// PrevPage goes back one page.
func (s *Session) PrevPage(ctx context.Context) error {
	rendition, ok := s.displayingRendition()
	if !ok {
		return nil
	}
	if err := rendition.Prev(ctx); err != nil {
		return s.engineFailure(err, "previous page")
	}
	return nil
}

// GoTo jumps to a position. Used for TOC entries, bookmarks, and search
// results.
func (s *Session) GoTo(ctx context.Context, cfi string) error {
	if cfi == "" {
		return apperr.Validation("cfi is required")
	}
	rendition, ok := s.displayingRendition()
	if !ok {
		return nil
	}
	if err := rendition.Display(ctx, cfi); err != nil {
		return s.engineFailure(err, "go to position")
	}
	return nil
}

// ApplyTheme pushes a theme into the live rendition. A no-op when nothing
// is displaying; persistence happens at the preference layer, so the theme
// still takes effect on the next open.
func (s *Session) ApplyTheme(theme domain.Theme) error {
	if !domain.ValidTheme(theme) {
		return apperr.Validationf("unknown theme %q", theme)
	}

	rendition, highlights, ok := s.displayingRenditionAndHighlights()
	if !ok {
		return nil
	}
	if err := rendition.Themes().Select(string(theme)); err != nil {
		return s.engineFailure(err, "apply theme")
	}

	// Engines drop visual annotations when content re-paints, so stored
	// highlights are painted again after every theme change.
	if err := rendition.Annotations().Clear(); err != nil && s.logger != nil {
		s.logger.Warn("clear annotations failed", "error", err)
	}
	s.applyAnnotations(rendition, highlights)

	s.mu.Lock()
	if s.prefs != nil {
		s.prefs.CurrentTheme = theme
	}
	s.mu.Unlock()
	return nil
}

// ApplyFont pushes a catalog font into the live rendition. A no-op when
// nothing is displaying.
func (s *Session) ApplyFont(fontID string) error {
	font, ok := domain.FontByID(fontID)
	if !ok {
		return apperr.Validationf("unknown reading font %q", fontID)
	}

	rendition, rok := s.displayingRendition()
	if !rok {
		return nil
	}
	if err := rendition.Themes().Font(font.Stack); err != nil {
		return s.engineFailure(err, "apply font")
	}

	s.mu.Lock()
	if s.prefs != nil {
		s.prefs.ReadingFont = fontID
	}
	s.mu.Unlock()
	return nil
}

// ApplyFontSize pushes a font size into the live rendition. Clamping
// happens at the preference layer; the session applies what it is given.
func (s *Session) ApplyFontSize(percent int) error {
	rendition, ok := s.displayingRendition()
	if !ok {
		return nil
	}
	if err := rendition.Themes().FontSize(percent); err != nil {
		return s.engineFailure(err, "apply font size")
	}

	s.mu.Lock()
	if s.prefs != nil {
		s.prefs.FontSize = percent
	}
	s.mu.Unlock()
	return nil
}

// displayingRendition returns the live rendition, or false when the
// session is not displaying. The rendition is used outside the session
// lock: rendition calls may fire relocation handlers synchronously, and
// those handlers take the lock themselves.
func (s *Session) displayingRendition() (engine.Rendition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisplaying || s.rendition == nil {
		return nil, false
	}
	return s.rendition, true
}

func (s *Session) displayingRenditionAndHighlights() (engine.Rendition, []*domain.Highlight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisplaying || s.rendition == nil {
		return nil, nil, false
	}
	highlights := append([]*domain.Highlight(nil), s.highlights...)
	return s.rendition, highlights, true
}

// engineFailure classifies and logs an engine-level failure. Engine errors
// never propagate raw.
func (s *Session) engineFailure(err error, op string) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		err = apperr.Wrap(err, apperr.CodeEngineOperationFail, op)
	}
	if s.logger != nil {
		s.logger.Warn("engine operation failed", "op", op, "error", err)
	}
	return err
}
