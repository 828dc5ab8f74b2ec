package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/luminareader/lumina-server/internal/domain"
)

// Preferences live under a single key; there is one reader per install.
const preferencesKey = "prefs"

// GetPreferences returns the stored preferences, or ErrPreferencesNotFound
// on a fresh install.
func (s *Store) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	var prefs domain.Preferences
	err := s.get([]byte(preferencesKey), &prefs)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

// SavePreferences persists the preferences.
func (s *Store) SavePreferences(ctx context.Context, prefs *domain.Preferences) error {
	if err := s.set([]byte(preferencesKey), prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	s.emit(PreferencesUpdated{Preferences: prefs})
	return nil
}
