package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// --- Mock implementations for service testing ---

var (
	_ driven.Authenticator    = (*mockAuthenticator)(nil)
	_ driven.InvoiceService   = (*mockInvoices)(nil)
	_ driven.EventPublisher   = (*mockEvents)(nil)
	_ driven.DocumentRenderer = (*mockRenderer)(nil)
	_ driven.ArtifactMirror   = (*mockMirror)(nil)
)

// mockAuthenticator counts full authentications and refreshes.
type mockAuthenticator struct {
	mu           sync.Mutex
	now          func() time.Time
	authCalls    int
	refreshCalls int
	authErr      error
	refreshErr   error
	// failFor makes Authenticate fail for the named profile only.
	failFor string
	// emptyRefresh returns credentials without a refresh token on Refresh.
	emptyRefresh bool
}

func newMockAuthenticator(now func() time.Time) *mockAuthenticator {
	return &mockAuthenticator{now: now}
}

func (m *mockAuthenticator) Authenticate(_ context.Context, profile domain.Profile) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCalls++
	if m.authErr != nil {
		return nil, m.authErr
	}
	if m.failFor != "" && profile.Name == m.failFor {
		return nil, fmt.Errorf("%w: rejected", domain.ErrAuthRequired)
	}
	now := m.now()
	return &domain.Credential{
		AccessToken:        fmt.Sprintf("access-%s-%d", profile.Name, m.authCalls),
		AccessTokenExpiry:  now.Add(time.Hour),
		RefreshToken:       fmt.Sprintf("refresh-%s-%d", profile.Name, m.authCalls),
		RefreshTokenExpiry: now.Add(24 * time.Hour),
	}, nil
}

func (m *mockAuthenticator) Refresh(_ context.Context, profile domain.Profile, refreshToken string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	cred := &domain.Credential{
		AccessToken:       fmt.Sprintf("refreshed-%s-%d", profile.Name, m.refreshCalls),
		AccessTokenExpiry: m.now().Add(time.Hour),
	}
	if !m.emptyRefresh {
		cred.RefreshToken = refreshToken + "-rotated"
		cred.RefreshTokenExpiry = m.now().Add(24 * time.Hour)
	}
	return cred, nil
}

func (m *mockAuthenticator) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authCalls, m.refreshCalls
}

// mockInvoices serves a fixed list of invoices in pages and records calls.
type mockInvoices struct {
	mu         sync.Mutex
	items      []domain.InvoiceSummary
	queryCalls int
	fetchCalls map[string]int
	sessions   []driven.Session
	// queryErr is returned by every QueryPage call when set.
	queryErr error
	// fetchErr is returned by FetchInvoice for the given KSeF numbers.
	fetchErr map[string]error
	// onQuery runs before each page is served.
	onQuery func(offset int)
}

func newMockInvoices(n int) *mockInvoices {
	return &mockInvoices{
		items:      makeInvoices(n),
		fetchCalls: make(map[string]int),
		fetchErr:   make(map[string]error),
	}
}

func makeInvoices(n int) []domain.InvoiceSummary {
	items := make([]domain.InvoiceSummary, n)
	for i := range items {
		items[i] = domain.InvoiceSummary{
			KSeFNumber:    fmt.Sprintf("5265877635-20240105-%06d", i),
			InvoiceNumber: fmt.Sprintf("FV/%d/2024", i),
			IssueDate:     "2024-01-05",
			SellerNIP:     "5265877635",
			SellerName:    "Seller",
			GrossAmount:   float64(i) + 0.5,
			Currency:      "PLN",
		}
	}
	return items
}

func (m *mockInvoices) QueryPage(_ context.Context, s driven.Session, _ domain.SearchQuery, offset, size int) (*domain.InvoicePage, error) {
	m.mu.Lock()
	m.queryCalls++
	m.sessions = append(m.sessions, s)
	hook := m.onQuery
	err := m.queryErr
	m.mu.Unlock()

	if hook != nil {
		hook(offset)
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.items) {
		return &domain.InvoicePage{}, nil
	}
	end := min(offset+size, len(m.items))
	page := make([]domain.InvoiceSummary, end-offset)
	copy(page, m.items[offset:end])
	return &domain.InvoicePage{Items: page, HasMore: end < len(m.items)}, nil
}

func (m *mockInvoices) FetchInvoice(_ context.Context, _ driven.Session, ksefNumber string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls[ksefNumber]++
	if err := m.fetchErr[ksefNumber]; err != nil {
		return nil, err
	}
	return []byte("<Faktura><KSeF>" + ksefNumber + "</KSeF></Faktura>"), nil
}

func (m *mockInvoices) setItems(items []domain.InvoiceSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func (m *mockInvoices) queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

func (m *mockInvoices) fetches(ksefNumber string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls[ksefNumber]
}

// mockEvents records published events in order.
type mockEvents struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (m *mockEvents) Publish(eventType domain.EventType, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, domain.ProgressEvent{Type: eventType, Data: payload})
}

func (m *mockEvents) ofType(t domain.EventType) []domain.ProgressEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ProgressEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// mockRenderer produces a fake PDF and fails for selected invoices.
type mockRenderer struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (m *mockRenderer) Render(_ context.Context, raw []byte, summary domain.InvoiceSummary) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if summary.KSeFNumber == m.failOn {
		return nil, fmt.Errorf("converter exited with status 1")
	}
	return append([]byte("%PDF-1.7\n"), raw...), nil
}

// mockMirror records stored names and can fail every call.
type mockMirror struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (m *mockMirror) Name() string { return "mock" }

func (m *mockMirror) Store(_ context.Context, _ domain.Identity, name string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.names = append(m.names, name)
	return nil
}

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.delays = append(n.delays, d)
	n.mu.Unlock()
	return ctx.Err()
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
