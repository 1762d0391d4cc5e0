package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ksef-desk/internal/adapters/driving/web"
	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
)

var (
	_ driving.SettingsService = (*mockSettings)(nil)
	_ driving.TokenService    = (*mockTokens)(nil)
	_ driving.Orchestrator    = (*mockOrchestrator)(nil)
)

var (
	mainProfile   = domain.Profile{Name: "main", NIP: "5265877635", Environment: "test"}
	branchProfile = domain.Profile{Name: "branch", NIP: "1111111111", Environment: "demo"}
)

type mockSettings struct {
	profiles []domain.Profile
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) Profiles() ([]domain.Profile, error) { return m.profiles, nil }

func (m *mockSettings) ActiveProfile() (domain.Profile, error) { return m.profiles[0], nil }

func (m *mockSettings) SetActiveProfile(string) error { return nil }

type mockTokens struct {
	ReauthenticateFunc func(ctx context.Context, profile domain.Profile) (*domain.Credential, error)
	StatusFunc         func(identity domain.Identity) (domain.TokenStatus, error)
}

func (m *mockTokens) Credential(ctx context.Context, profile domain.Profile) (*domain.Credential, error) {
	return m.Reauthenticate(ctx, profile)
}

func (m *mockTokens) Reauthenticate(ctx context.Context, profile domain.Profile) (*domain.Credential, error) {
	if m.ReauthenticateFunc != nil {
		return m.ReauthenticateFunc(ctx, profile)
	}
	return &domain.Credential{}, nil
}

func (m *mockTokens) Status(identity domain.Identity) (domain.TokenStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(identity)
	}
	return domain.TokenStatus{}, nil
}

// mockOrchestrator only reports the active profile.
type mockOrchestrator struct {
	profile domain.Profile
}

func (m *mockOrchestrator) Search(context.Context, domain.SearchRequest) ([]domain.InvoiceSummary, error) {
	return nil, nil
}

func (m *mockOrchestrator) Download(context.Context, domain.DownloadRequest) (*domain.DownloadResult, error) {
	return nil, nil
}

func (m *mockOrchestrator) Results() []domain.InvoiceSummary { return nil }

func (m *mockOrchestrator) Details(context.Context, int) (*domain.InvoiceDetails, error) {
	return nil, domain.ErrIndexOutOfRange
}

func (m *mockOrchestrator) CheckExisting(domain.ExistingCheck) ([]domain.ExistingFiles, error) {
	return nil, nil
}

func (m *mockOrchestrator) Identity() domain.Identity { return m.profile.Identity() }

func (m *mockOrchestrator) Profile() domain.Profile { return m.profile }

func (m *mockOrchestrator) SwitchIdentity(context.Context, string) error { return nil }

func (m *mockOrchestrator) Refresh(context.Context) (int, error) { return 0, nil }

// useApp makes every command run against a with the given settings and tokens.
func useApp(t *testing.T, a *app) *[]appOptions {
	t.Helper()
	var seen []appOptions
	original := newApp
	newApp = func(_ context.Context, opts appOptions) (*app, error) {
		seen = append(seen, opts)
		return a, nil
	}
	t.Cleanup(func() { newApp = original })
	return &seen
}

func testApp(tokens *mockTokens) *app {
	return &app{
		settings:   &mockSettings{profiles: []domain.Profile{mainProfile, branchProfile}},
		tokens:     tokens,
		orch:       &mockOrchestrator{profile: mainProfile},
		hub:        web.NewHub(),
		configPath: "/cfg/config.toml",
	}
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags clears values and Changed marks left by a previous run.
func resetFlags(cmd *cobra.Command) {
	authProfile, statusProfile, configDir = "", "", ""
	for _, c := range append(cmd.Commands(), cmd) {
		for _, name := range []string{"profile", "port", "lan", "no-browser"} {
			if f := c.Flags().Lookup(name); f != nil {
				f.Changed = false
			}
		}
	}
}
