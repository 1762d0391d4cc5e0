package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Ensure PreferencesStore implements the interface.
var _ driven.PreferencesStore = (*PreferencesStore)(nil)

// PreferencesStore is an in-memory implementation of driven.PreferencesStore.
type PreferencesStore struct {
	mu    sync.RWMutex
	prefs map[string]any
}

// NewPreferencesStore creates a new in-memory preferences store.
func NewPreferencesStore() *PreferencesStore {
	return &PreferencesStore{
		prefs: make(map[string]any),
	}
}

// Load returns a copy of the stored preferences.
func (s *PreferencesStore) Load() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.prefs), nil
}

// Save replaces the stored preferences.
func (s *PreferencesStore) Save(prefs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = maps.Clone(prefs)
	if s.prefs == nil {
		s.prefs = make(map[string]any)
	}
	return nil
}

// Merge overwrites the given keys and keeps the rest.
func (s *PreferencesStore) Merge(updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.prefs, updates)
	return nil
}
