package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luminareader/lumina-server/internal/domain"
	apperr "github.com/luminareader/lumina-server/internal/errors"
	"github.com/luminareader/lumina-server/internal/store"
)

// RenditionApplier pushes preference changes into whatever is currently
// displaying. Implemented by the reader session, whose apply methods are
// no-ops when no book is open.
type RenditionApplier interface {
	ApplyTheme(theme domain.Theme) error
	ApplyFont(fontID string) error
	ApplyFontSize(percent int) error
}

// PreferencesService manages reading preferences. Every change is
// persisted immediately and pushed into the open rendition, so the reader
// never restarts to pick up a setting.
type PreferencesService struct {
	store   *store.Store
	applier RenditionApplier
	logger  *slog.Logger
}

// NewPreferencesService creates a new preferences service.
func NewPreferencesService(store *store.Store, applier RenditionApplier, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{
		store:   store,
		applier: applier,
		logger:  logger,
	}
}

// Get returns the stored preferences, or defaults on a fresh install.
func (s *PreferencesService) Get(ctx context.Context) (*domain.Preferences, error) {
	prefs, err := s.store.GetPreferences(ctx)
	if err != nil {
		if errors.Is(err, store.ErrPreferencesNotFound) {
			return domain.NewPreferences(), nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// PreferencesUpdate carries the fields to change. Nil fields are left
// alone.
type PreferencesUpdate struct {
	Theme       *domain.Theme
	FontSize    *int
	ReadingFont *string
	TwoPageView *bool
}

// Update validates, persists, and live-applies a preferences change. Font
// sizes are clamped to the valid range and snapped to the step grid rather
// than rejected.
func (s *PreferencesService) Update(ctx context.Context, update PreferencesUpdate) (*domain.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefs, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if update.Theme != nil {
		if !domain.ValidTheme(*update.Theme) {
			return nil, apperr.Validationf("unknown theme %q", *update.Theme)
		}
		prefs.CurrentTheme = *update.Theme
	}
	if update.ReadingFont != nil {
		if _, ok := domain.FontByID(*update.ReadingFont); !ok {
			return nil, apperr.Validationf("unknown reading font %q", *update.ReadingFont)
		}
		prefs.ReadingFont = *update.ReadingFont
	}
	if update.FontSize != nil {
		prefs.FontSize = domain.ClampFontSize(*update.FontSize)
	}
	if update.TwoPageView != nil {
		prefs.IsTwoPageView = *update.TwoPageView
	}

	prefs.Touch()
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}

	s.liveApply(update, prefs)
	return prefs, nil
}

// IncreaseFontSize steps the font size up by one step, saturating at the
// maximum.
func (s *PreferencesService) IncreaseFontSize(ctx context.Context) (*domain.Preferences, error) {
	return s.stepFontSize(ctx, domain.FontSizeStep)
}

// DecreaseFontSize steps the font size down by one step, saturating at the
// minimum.
func (s *PreferencesService) DecreaseFontSize(ctx context.Context) (*domain.Preferences, error) {
	return s.stepFontSize(ctx, -domain.FontSizeStep)
}

func (s *PreferencesService) stepFontSize(ctx context.Context, delta int) (*domain.Preferences, error) {
	prefs, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	next := domain.ClampFontSize(prefs.FontSize + delta)
	if next == prefs.FontSize {
		return prefs, nil
	}
	return s.Update(ctx, PreferencesUpdate{FontSize: &next})
}

// Fonts returns the fixed reading font catalog.
func (s *PreferencesService) Fonts() []domain.ReadingFont {
	return domain.FontCatalog()
}

// liveApply pushes the changed fields into the open rendition. Persistence
// already happened; a failure here only affects the current view and is
// logged. Two-page view is part of the render config and takes effect on
// the next open.
func (s *PreferencesService) liveApply(update PreferencesUpdate, prefs *domain.Preferences) {
	if s.applier == nil {
		return
	}

	if update.Theme != nil {
		if err := s.applier.ApplyTheme(prefs.CurrentTheme); err != nil {
			s.logger.Warn("live-apply theme", "theme", prefs.CurrentTheme, "error", err)
		}
	}
	if update.ReadingFont != nil {
		if err := s.applier.ApplyFont(prefs.ReadingFont); err != nil {
			s.logger.Warn("live-apply font", "font", prefs.ReadingFont, "error", err)
		}
	}
	if update.FontSize != nil {
		if err := s.applier.ApplyFontSize(prefs.FontSize); err != nil {
			s.logger.Warn("live-apply font size", "font_size", prefs.FontSize, "error", err)
		}
	}
}
