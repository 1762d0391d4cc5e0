package driven

import "github.com/custodia-labs/ksef-desk/internal/core/domain"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	// Returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// GetStringSlice retrieves a string slice configuration value.
	// Returns nil if key doesn't exist or isn't a slice.
	GetStringSlice(key string) []string

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}

// ProfileStore lists the configured profiles.
type ProfileStore interface {
	// Profiles returns every configured profile in file order.
	Profiles() ([]domain.Profile, error)

	// Profile returns the profile called name.
	// Returns domain.ErrUnknownProfile if it is not configured.
	Profile(name string) (domain.Profile, error)
}

// RawConfig exposes the configuration file text for the built-in editor.
type RawConfig interface {
	// Raw returns the file contents.
	Raw() ([]byte, error)

	// WriteRaw validates and atomically replaces the file, then reloads it.
	WriteRaw(data []byte) error
}
