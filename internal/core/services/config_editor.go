package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Ensure ConfigEditor implements the interface.
var _ driving.ConfigEditor = (*ConfigEditor)(nil)

// ConfigEditor backs the built-in configuration editor and applies
// configuration changes to the running orchestrator.
type ConfigEditor struct {
	raw      driven.RawConfig
	config   driven.ConfigStore
	settings driving.SettingsService
	orch     driving.Orchestrator
}

// NewConfigEditor creates a config editor.
func NewConfigEditor(
	raw driven.RawConfig,
	config driven.ConfigStore,
	settings driving.SettingsService,
	orch driving.Orchestrator,
) *ConfigEditor {
	return &ConfigEditor{
		raw:      raw,
		config:   config,
		settings: settings,
		orch:     orch,
	}
}

// Read returns the current configuration file contents.
func (e *ConfigEditor) Read() (*domain.ConfigDocument, error) {
	data, err := e.raw.Raw()
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return &domain.ConfigDocument{Path: e.config.Path(), Content: string(data)}, nil
}

// Write stores new contents and re-applies the active profile. When the
// profile cannot be applied the previous contents are written back.
func (e *ConfigEditor) Write(ctx context.Context, doc domain.ConfigDocument) error {
	previous, err := e.raw.Raw()
	if err != nil {
		return fmt.Errorf("read configuration: %w", err)
	}

	if err := e.raw.WriteRaw([]byte(doc.Content)); err != nil {
		return err
	}

	if err := e.Reapply(ctx); err != nil {
		if restoreErr := e.raw.WriteRaw(previous); restoreErr != nil {
			return errors.Join(fmt.Errorf("apply configuration: %w", err), fmt.Errorf("restore configuration: %w", restoreErr))
		}
		logger.Warn("Configuration change rolled back: %v", err)
		return fmt.Errorf("apply configuration: %w", err)
	}

	logger.Info("Configuration saved to %s", e.config.Path())
	return nil
}

// Reapply switches to the configured active profile if it differs from the
// one the orchestrator is running with.
func (e *ConfigEditor) Reapply(ctx context.Context) error {
	profile, err := e.settings.ActiveProfile()
	if err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if sameProfile(profile, e.orch.Profile()) {
		logger.Debug("Active profile %s unchanged", profile.Name)
		return nil
	}
	return e.orch.SwitchIdentity(ctx, profile.Name)
}

func sameProfile(a, b domain.Profile) bool {
	return a.Name == b.Name &&
		a.NIP == b.NIP &&
		a.Environment == b.Environment &&
		a.ClientID == b.ClientID &&
		a.ClientSecret == b.ClientSecret &&
		a.TokenURL == b.TokenURL &&
		a.DeviceAuthURL == b.DeviceAuthURL &&
		a.Grant == b.Grant &&
		slices.Equal(a.Scopes, b.Scopes)
}
