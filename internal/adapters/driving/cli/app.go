package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/mirror"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/oauth"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/remote"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/render"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/tokenfile"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driving/web"
	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
	"github.com/custodia-labs/ksef-desk/internal/core/services"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// app is the wired application. Commands use the interfaces; serve also
// needs the concrete pieces that have no port.
type app struct {
	settings driving.SettingsService
	tokens   driving.TokenService
	orch     driving.Orchestrator
	editor   driving.ConfigEditor
	prefs    driven.PreferencesStore
	hub      *web.Hub

	appSettings domain.AppSettings
	configPath  string
	// reload re-reads the configuration file before Reapply.
	reload func() error
	close  func() error
}

// appOptions are the command line overrides applied while wiring.
type appOptions struct {
	configDir    string
	noTokenCache bool
	prompt       oauth.DevicePrompt
}

// newApp builds the application. Tests replace it.
var newApp = openApp

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	dir := opts.configDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultConfigDir(); err != nil {
			return nil, err
		}
	}

	config, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open configuration: %w", err)
	}
	settings := services.NewSettingsService(config, config)
	appSettings, err := settings.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	prefs, err := file.NewPreferencesStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}

	results, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("open result cache: %w", err)
	}

	credentials, err := tokenfile.NewStore(filepath.Join(dir, tokenfile.FileName))
	if err != nil {
		_ = results.Close()
		return nil, fmt.Errorf("open token file: %w", err)
	}
	noCache := opts.noTokenCache || appSettings.Tokens.NoCache
	tokens := services.NewTokenCache(oauth.NewAuthenticator(nil, opts.prompt), credentials, noCache)

	// A nil *Renderer inside the interface would defeat the orchestrator's nil check.
	var renderer driven.DocumentRenderer
	if appSettings.Render.IsConfigured() {
		r, err := render.NewRenderer(appSettings.Render.Command)
		if err != nil {
			logger.Warn("PDF export disabled: %v", err)
		} else {
			renderer = r
		}
	}

	mirrors, err := mirror.New(ctx, appSettings.Mirror)
	if err != nil {
		_ = results.Close()
		return nil, fmt.Errorf("configure mirrors: %w", err)
	}

	hub := web.NewHub()
	orch := services.NewOrchestrator(
		remote.NewClient(appSettings.Remote),
		tokens,
		config,
		results,
		prefs,
		hub,
		renderer,
		mirrors,
		appSettings.Download.Dir,
	)

	profile, err := settings.ActiveProfile()
	switch {
	case err != nil:
		logger.Warn("No active profile: %v", err)
	default:
		if err := orch.Bind(ctx, profile); err != nil {
			logger.Warn("Profile %s is not usable: %v", profile.Name, err)
		}
	}

	return &app{
		settings:    settings,
		tokens:      tokens,
		orch:        orch,
		editor:      services.NewConfigEditor(config, config, settings, orch),
		prefs:       prefs,
		hub:         hub,
		appSettings: *appSettings,
		configPath:  config.Path(),
		reload:      config.Load,
		close:       results.Close,
	}, nil
}

// activeProfile returns the orchestrator's profile or a helpful error.
func (a *app) activeProfile() (domain.Profile, error) {
	profile := a.orch.Profile()
	if profile.Name == "" {
		return domain.Profile{}, fmt.Errorf("%w: add a [[profiles]] entry to %s", domain.ErrUnknownProfile, a.configPath)
	}
	return profile, nil
}

func (a *app) shutdown() {
	if a.close == nil {
		return
	}
	if err := a.close(); err != nil {
		logger.Warn("Closing: %v", err)
	}
}
