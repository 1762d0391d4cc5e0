package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerSettings_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8765", ServerSettings{Port: 8765}.Addr())
	assert.Equal(t, "0.0.0.0:9000", ServerSettings{Port: 9000, LAN: true}.Addr())
}

func TestRemoteSettings_URLFor(t *testing.T) {
	r := RemoteSettings{
		BaseURL: "https://api.example",
		URLs:    map[Environment]string{EnvironmentTest: "https://test.example"},
	}

	assert.Equal(t, "https://test.example", r.URLFor(EnvironmentTest))
	assert.Equal(t, "https://api.example", r.URLFor(EnvironmentProduction))
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, DefaultPort, s.Server.Port)
	assert.True(t, s.Server.OpenBrowser)
	assert.False(t, s.Refresh.Enabled)
	assert.Equal(t, DefaultRefreshInterval, s.Refresh.Interval)
	assert.False(t, s.Render.IsConfigured())
	assert.Equal(t, 22, s.Mirror.SFTPPort)
}
