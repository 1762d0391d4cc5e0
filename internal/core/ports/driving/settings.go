package driving

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Profiles returns the configured profiles.
	Profiles() ([]domain.Profile, error)

	// ActiveProfile returns the profile named by active_profile, or the
	// first configured profile when none is set.
	ActiveProfile() (domain.Profile, error)

	// SetActiveProfile persists the active profile name.
	SetActiveProfile(name string) error
}

// ConfigEditor backs the built-in configuration editor.
type ConfigEditor interface {
	// Read returns the current configuration file contents.
	Read() (*domain.ConfigDocument, error)

	// Write validates and stores new contents, then re-applies the active
	// profile. If the profile cannot be applied the previous file is restored.
	Write(ctx context.Context, doc domain.ConfigDocument) error

	// Reapply re-reads the configuration and switches to the active profile
	// if it changed. Used after the file was edited outside the application.
	Reapply(ctx context.Context) error
}
