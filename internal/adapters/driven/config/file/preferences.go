package file

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// PreferencesFileName is the preferences file inside the config directory.
const PreferencesFileName = "preferences.json"

// Ensure PreferencesStore implements the interface.
var _ driven.PreferencesStore = (*PreferencesStore)(nil)

// PreferencesStore keeps the browser's preferences object in a JSON file.
type PreferencesStore struct {
	mu       sync.Mutex
	filePath string
}

// NewPreferencesStore creates a store in configDir.
func NewPreferencesStore(configDir string) (*PreferencesStore, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}
	return &PreferencesStore{filePath: filepath.Join(configDir, PreferencesFileName)}, nil
}

// Load returns the stored preferences. A missing or unreadable file yields
// an empty map.
func (s *PreferencesStore) Load() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Save replaces the stored preferences.
func (s *PreferencesStore) Save(prefs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefs == nil {
		prefs = map[string]any{}
	}
	return s.save(prefs)
}

// Merge overwrites the given keys and keeps the rest.
func (s *PreferencesStore) Merge(updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.load()
	maps.Copy(prefs, updates)
	return s.save(prefs)
}

func (s *PreferencesStore) load() map[string]any {
	prefs := make(map[string]any)
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read %s: %v", s.filePath, err)
		}
		return prefs
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		logger.Warn("Ignoring corrupt preferences file %s: %v", s.filePath, err)
		return make(map[string]any)
	}
	return prefs
}

func (s *PreferencesStore) save(prefs map[string]any) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := writeFileAtomic(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
