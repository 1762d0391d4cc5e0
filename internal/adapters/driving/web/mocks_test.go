package web

import (
	"context"
	"sync"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
)

var (
	_ driving.Orchestrator    = (*mockOrchestrator)(nil)
	_ driving.TokenService    = (*mockTokens)(nil)
	_ driving.SettingsService = (*mockSettings)(nil)
	_ driving.ConfigEditor    = (*mockEditor)(nil)
)

var testProfile = domain.Profile{
	Name:        "main",
	NIP:         "5265877635",
	Environment: "test",
}

// mockOrchestrator returns canned results and records what it was asked.
type mockOrchestrator struct {
	mu       sync.Mutex
	profile  domain.Profile
	items    []domain.InvoiceSummary
	details  *domain.InvoiceDetails
	existing []domain.ExistingFiles
	err      error

	searched  []domain.SearchRequest
	downloads []domain.DownloadRequest
	switched  []string
	detailIdx []int
}

func (m *mockOrchestrator) Search(_ context.Context, req domain.SearchRequest) ([]domain.InvoiceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

func (m *mockOrchestrator) Download(_ context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.DownloadResult{JobID: "job-1", Count: len(m.items), Dir: req.OutputDir}, nil
}

func (m *mockOrchestrator) Results() []domain.InvoiceSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items
}

func (m *mockOrchestrator) Details(_ context.Context, index int) (*domain.InvoiceDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailIdx = append(m.detailIdx, index)
	if m.err != nil {
		return nil, m.err
	}
	return m.details, nil
}

func (m *mockOrchestrator) CheckExisting(_ domain.ExistingCheck) ([]domain.ExistingFiles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.existing, nil
}

func (m *mockOrchestrator) Identity() domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.Identity()
}

func (m *mockOrchestrator) Profile() domain.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *mockOrchestrator) SwitchIdentity(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.switched = append(m.switched, name)
	if m.err != nil {
		return m.err
	}
	m.profile.Name = name
	return nil
}

func (m *mockOrchestrator) Refresh(_ context.Context) (int, error) {
	return 0, m.err
}

// mockTokens reports a fixed status and counts re-authentications.
type mockTokens struct {
	mu      sync.Mutex
	status  domain.TokenStatus
	err     error
	reauths int
}

func (m *mockTokens) Credential(_ context.Context, _ domain.Profile) (*domain.Credential, error) {
	return &domain.Credential{AccessToken: "token"}, m.err
}

func (m *mockTokens) Reauthenticate(_ context.Context, _ domain.Profile) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reauths++
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Credential{AccessToken: "token"}, nil
}

func (m *mockTokens) Status(_ domain.Identity) (domain.TokenStatus, error) {
	return m.status, nil
}

// mockSettings serves a fixed profile list.
type mockSettings struct {
	mu       sync.Mutex
	profiles []domain.Profile
	active   string
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettings) Profiles() ([]domain.Profile, error) {
	return m.profiles, nil
}

func (m *mockSettings) ActiveProfile() (domain.Profile, error) {
	return m.profiles[0], nil
}

func (m *mockSettings) SetActiveProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = name
	return nil
}

// mockEditor keeps the document in memory.
type mockEditor struct {
	doc      domain.ConfigDocument
	writeErr error
	written  []domain.ConfigDocument
}

func (m *mockEditor) Read() (*domain.ConfigDocument, error) {
	doc := m.doc
	return &doc, nil
}

func (m *mockEditor) Write(_ context.Context, doc domain.ConfigDocument) error {
	m.written = append(m.written, doc)
	if m.writeErr != nil {
		return m.writeErr
	}
	m.doc = doc
	return nil
}

func (m *mockEditor) Reapply(_ context.Context) error {
	return nil
}
