package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyActiveProfile  = "active_profile"
	keyServerPort     = "server.port"
	keyServerLAN      = "server.lan"
	keyServerBrowser  = "server.open_browser"
	keyDownloadDir    = "download.dir"
	keyRefreshEnabled = "refresh.enabled"
	keyRefreshEvery   = "refresh.interval"
	keyTokensNoCache  = "tokens.no_cache"
	keyRemoteBaseURL  = "remote.base_url"
	keyRemoteURLs     = "remote.urls."
	keyRemoteTimeout  = "remote.timeout"
	keyRenderCommand  = "render.command"
	keyMirrorTargets  = "mirror.targets"
	keyS3Bucket       = "mirror.s3.bucket"
	keyS3Prefix       = "mirror.s3.prefix"
	keyAzureAccount   = "mirror.azure.account"
	keyAzureKey       = "mirror.azure.key"
	keyAzureContainer = "mirror.azure.container"
	keyAzurePrefix    = "mirror.azure.prefix"
	keySFTPHost       = "mirror.sftp.host"
	keySFTPPort       = "mirror.sftp.port"
	keySFTPUser       = "mirror.sftp.user"
	keySFTPPassword   = "mirror.sftp.password"
	keySFTPKeyPath    = "mirror.sftp.key_path"
	keySFTPBaseDir    = "mirror.sftp.base_dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore  driven.ConfigStore
	profileStore driven.ProfileStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, profileStore driven.ProfileStore) *SettingsService {
	return &SettingsService{
		configStore:  configStore,
		profileStore: profileStore,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	urls := make(map[domain.Environment]string)
	for _, env := range []domain.Environment{
		domain.EnvironmentTest, domain.EnvironmentDemo, domain.EnvironmentProduction,
	} {
		if u := s.configStore.GetString(keyRemoteURLs + env.String()); u != "" {
			urls[env] = u
		}
	}

	settings := &domain.AppSettings{
		ActiveProfile: s.configStore.GetString(keyActiveProfile),
		Server: domain.ServerSettings{
			Port:        s.getInt(keyServerPort, defaults.Server.Port),
			LAN:         s.getBool(keyServerLAN, defaults.Server.LAN),
			OpenBrowser: s.getBool(keyServerBrowser, defaults.Server.OpenBrowser),
		},
		Download: domain.DownloadSettings{
			Dir: s.getString(keyDownloadDir, defaults.Download.Dir),
		},
		Refresh: domain.RefreshSettings{
			Enabled:  s.getBool(keyRefreshEnabled, defaults.Refresh.Enabled),
			Interval: s.getDuration(keyRefreshEvery, defaults.Refresh.Interval),
		},
		Tokens: domain.TokenSettings{
			NoCache: s.getBool(keyTokensNoCache, defaults.Tokens.NoCache),
		},
		Remote: domain.RemoteSettings{
			BaseURL: s.configStore.GetString(keyRemoteBaseURL),
			URLs:    urls,
			Timeout: s.getDuration(keyRemoteTimeout, defaults.Remote.Timeout),
		},
		Render: domain.RenderSettings{
			Command: s.configStore.GetStringSlice(keyRenderCommand),
		},
		Mirror: domain.MirrorSettings{
			Targets:        s.configStore.GetStringSlice(keyMirrorTargets),
			S3Bucket:       s.configStore.GetString(keyS3Bucket),
			S3Prefix:       s.configStore.GetString(keyS3Prefix),
			AzureAccount:   s.configStore.GetString(keyAzureAccount),
			AzureKey:       s.configStore.GetString(keyAzureKey),
			AzureContainer: s.configStore.GetString(keyAzureContainer),
			AzurePrefix:    s.configStore.GetString(keyAzurePrefix),
			SFTPHost:       s.configStore.GetString(keySFTPHost),
			SFTPPort:       s.getInt(keySFTPPort, defaults.Mirror.SFTPPort),
			SFTPUser:       s.configStore.GetString(keySFTPUser),
			SFTPPassword:   s.configStore.GetString(keySFTPPassword),
			SFTPKeyPath:    s.configStore.GetString(keySFTPKeyPath),
			SFTPBaseDir:    s.configStore.GetString(keySFTPBaseDir),
		},
	}

	if settings.Server.Port <= 0 || settings.Server.Port > 65535 {
		return nil, domain.NewValidationError(keyServerPort, fmt.Sprintf("%d is not a valid port", settings.Server.Port))
	}

	return settings, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Profiles returns the configured profiles.
func (s *SettingsService) Profiles() ([]domain.Profile, error) {
	profiles, err := s.profileStore.Profiles()
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// ActiveProfile returns the profile named by active_profile, or the first
// configured profile when none is set.
func (s *SettingsService) ActiveProfile() (domain.Profile, error) {
	if name := s.configStore.GetString(keyActiveProfile); name != "" {
		return s.profileStore.Profile(name)
	}

	profiles, err := s.Profiles()
	if err != nil {
		return domain.Profile{}, err
	}
	if len(profiles) == 0 {
		return domain.Profile{}, fmt.Errorf("%w: no profiles configured in %s", domain.ErrUnknownProfile, s.configStore.Path())
	}
	return profiles[0], nil
}

// SetActiveProfile persists the active profile name.
func (s *SettingsService) SetActiveProfile(name string) error {
	if _, err := s.profileStore.Profile(name); err != nil {
		return err
	}
	if err := s.configStore.Set(keyActiveProfile, name); err != nil {
		return fmt.Errorf("save active profile: %w", err)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts a Go duration string ("15m") or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if str := s.configStore.GetString(key); str != "" {
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			return d
		}
		return defaultVal
	}
	if secs := s.configStore.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
