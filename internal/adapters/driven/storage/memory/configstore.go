package memory

import (
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interfaces.
var (
	_ driven.ConfigStore  = (*ConfigStore)(nil)
	_ driven.ProfileStore = (*ConfigStore)(nil)
	_ driven.RawConfig    = (*ConfigStore)(nil)
)

// ConfigStore is an in-memory implementation of driven.ConfigStore,
// driven.ProfileStore and driven.RawConfig for testing.
// Values set with Set and values parsed by WriteRaw share one key space.
type ConfigStore struct {
	mu       sync.RWMutex
	values   map[string]any
	profiles []domain.Profile
	raw      []byte
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore(profiles ...domain.Profile) *ConfigStore {
	return &ConfigStore{
		values:   make(map[string]any),
		profiles: profiles,
	}
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	if str, ok := s.lookup(key).(string); ok {
		return str
	}
	return ""
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	switch v := s.lookup(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := s.lookup(key).(bool)
	return b
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	switch v := s.lookup(key).(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

func (s *ConfigStore) lookup(key string) any {
	val, _ := s.Get(key)
	return val
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Save persists the current configuration (no-op for memory store).
func (s *ConfigStore) Save() error {
	return nil
}

// Load reads configuration from storage (no-op for memory store).
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return ":memory:"
}

// AddProfile appends a profile.
func (s *ConfigStore) AddProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, p)
}

// Profiles returns every profile in insertion order.
func (s *ConfigStore) Profiles() ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Profile, len(s.profiles))
	copy(out, s.profiles)
	return out, nil
}

// Profile returns the profile called name.
func (s *ConfigStore) Profile(name string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrUnknownProfile, name)
}

// Raw returns the last text written with WriteRaw.
func (s *ConfigStore) Raw() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.raw...), nil
}

// WriteRaw parses TOML text and replaces every value and profile with its contents.
func (s *ConfigStore) WriteRaw(data []byte) error {
	var doc struct {
		ActiveProfile string           `toml:"active_profile"`
		Profiles      []domain.Profile `toml:"profiles"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return domain.NewValidationError("content", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append([]byte(nil), data...)
	s.values = map[string]any{}
	if doc.ActiveProfile != "" {
		s.values["active_profile"] = doc.ActiveProfile
	}
	s.profiles = doc.Profiles
	return nil
}
