package domain

import (
	"net"
	"strconv"
	"time"
)

// Default settings values.
const (
	DefaultPort            = 8765
	DefaultRefreshInterval = 15 * time.Minute
	DefaultRemoteTimeout   = 60 * time.Second
)

// ServerSettings controls the local HTTP listener.
type ServerSettings struct {
	// Port is the TCP port to listen on.
	Port int
	// LAN binds all interfaces instead of loopback only.
	LAN bool
	// OpenBrowser opens the page after the server starts.
	OpenBrowser bool
}

// Addr returns the listen address.
func (s ServerSettings) Addr() string {
	host := "127.0.0.1"
	if s.LAN {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// DownloadSettings holds the default export location.
type DownloadSettings struct {
	Dir string
}

// RefreshSettings controls background re-runs of the last query.
type RefreshSettings struct {
	Enabled  bool
	Interval time.Duration
}

// TokenSettings controls the credential cache.
type TokenSettings struct {
	// NoCache always authenticates fully and never persists credentials.
	NoCache bool
}

// RemoteSettings locates the invoice API.
type RemoteSettings struct {
	// BaseURL is used for environments without a dedicated URL.
	BaseURL string
	// URLs maps environment names to API base URLs.
	URLs    map[Environment]string
	Timeout time.Duration
}

// URLFor returns the base URL for env.
func (r RemoteSettings) URLFor(env Environment) string {
	if u, ok := r.URLs[env]; ok && u != "" {
		return u
	}
	return r.BaseURL
}

// RenderSettings configures the external PDF converter.
// Command is an argv where "{in}" and "{out}" are replaced with file paths.
type RenderSettings struct {
	Command []string
}

// IsConfigured returns true if a converter command is set.
func (r RenderSettings) IsConfigured() bool {
	return len(r.Command) > 0
}

// MirrorSettings lists remote stores that receive copies of downloaded files.
type MirrorSettings struct {
	// Targets contains any of "s3", "azure", "sftp".
	Targets []string

	S3Bucket string
	S3Prefix string

	AzureAccount   string
	AzureKey       string
	AzureContainer string
	AzurePrefix    string

	SFTPHost     string
	SFTPPort     int
	SFTPUser     string
	SFTPPassword string
	SFTPKeyPath  string
	SFTPBaseDir  string
}

// AppSettings holds all application settings.
type AppSettings struct {
	ActiveProfile string
	Server        ServerSettings
	Download      DownloadSettings
	Refresh       RefreshSettings
	Tokens        TokenSettings
	Remote        RemoteSettings
	Render        RenderSettings
	Mirror        MirrorSettings
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{
			Port:        DefaultPort,
			OpenBrowser: true,
		},
		Refresh: RefreshSettings{
			Interval: DefaultRefreshInterval,
		},
		Remote: RemoteSettings{
			Timeout: DefaultRemoteTimeout,
		},
		Mirror: MirrorSettings{
			SFTPPort: 22,
		},
	}
}

// ConfigDocument is the configuration file as shown in the built-in editor.
type ConfigDocument struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content"`
}
