package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.toml"

// profilesKey is the array of tables holding the profiles.
const profilesKey = "profiles"

// Ensure ConfigStore implements the interfaces.
var (
	_ driven.ConfigStore  = (*ConfigStore)(nil)
	_ driven.ProfileStore = (*ConfigStore)(nil)
	_ driven.RawConfig    = (*ConfigStore)(nil)
)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Nested tables are exposed as dot-notation keys; the [[profiles]] array is
// decoded separately into domain.Profile values.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
	profiles []domain.Profile
}

// DefaultConfigDir returns ~/.ksef-desk.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ksef-desk"), nil
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.ksef-desk/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, ConfigFileName),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}

	// TOML arrays are parsed as []any
	switch v := val.(type) {
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

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	doc := unflattenMap(s.data)
	if len(s.profiles) > 0 {
		doc[profilesKey] = s.profiles
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeFileAtomic(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	values, profiles, err := parseConfig(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = values
	s.profiles = profiles
	return nil
}

// parseConfig decodes TOML text into flattened values and profiles.
func parseConfig(data []byte) (map[string]any, []domain.Profile, error) {
	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return nil, nil, err
	}
	if loaded == nil {
		loaded = make(map[string]any)
	}

	var doc struct {
		Profiles []domain.Profile `toml:"profiles"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	delete(loaded, profilesKey)

	// Flatten nested maps into dot-notation keys for easier access
	return flattenMap(loaded, ""), doc.Profiles, nil
}

// FlattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// unflattenMap reverses flattenMap so tables are written as TOML sections.
func unflattenMap(m map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		parts := strings.Split(key, ".")
		node := result
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Profiles returns every configured profile in file order.
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

// Raw returns the configuration file contents; a missing file reads as empty.
func (s *ConfigStore) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return []byte{}, nil
	}
	return data, err
}

// WriteRaw validates TOML text, replaces the file atomically and reloads it.
// Invalid text leaves both the file and the loaded configuration unchanged.
func (s *ConfigStore) WriteRaw(data []byte) error {
	values, profiles, err := parseConfig(data)
	if err != nil {
		return domain.NewValidationError("content", err.Error())
	}
	if err := validateProfiles(profiles, values); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	s.data = values
	s.profiles = profiles
	return nil
}

func validateProfiles(profiles []domain.Profile, values map[string]any) error {
	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if seen[p.Name] {
			return domain.NewValidationError("profiles", fmt.Sprintf("duplicate profile name %q", p.Name))
		}
		seen[p.Name] = true
	}
	if active, ok := values["active_profile"].(string); ok && active != "" && !seen[active] {
		return domain.NewValidationError("active_profile", fmt.Sprintf("no profile named %q", active))
	}
	return nil
}

// writeFileAtomic writes data to a temporary file beside path and renames it
// into place, so readers and the watcher never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
