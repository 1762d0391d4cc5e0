package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.Orchestrator = (*Orchestrator)(nil)

// Pagination settings for metadata queries.
const (
	pageSize = 100

	// pageInterval is the pause between consecutive pages of one search.
	pageInterval = 200 * time.Millisecond
)

// Orchestrator owns the active profile and the current result set, and runs
// searches, downloads and identity switches against them.
//
// Jobs are serialised by a gate: a second search, download, refresh or
// switch started while one is running fails with domain.ErrJobRunning.
// Read-only calls (Results, Details, CheckExisting) never wait for the gate.
type Orchestrator struct {
	invoices   driven.InvoiceService
	tokens     driving.TokenService
	profiles   driven.ProfileStore
	results    driven.ResultCache
	prefs      driven.PreferencesStore
	events     driven.EventPublisher
	renderer   driven.DocumentRenderer
	mirrors    []driven.ArtifactMirror
	defaultDir string

	pageEvery time.Duration
	sleep     sleepFunc
	newID     func() string

	gate sync.Mutex

	mu      sync.RWMutex
	profile domain.Profile
	items   []domain.InvoiceSummary
}

// NewOrchestrator creates an orchestrator. renderer may be nil, in which case
// PDF exports fail with domain.ErrRendererUnavailable; mirrors may be empty.
func NewOrchestrator(
	invoices driven.InvoiceService,
	tokens driving.TokenService,
	profiles driven.ProfileStore,
	results driven.ResultCache,
	prefs driven.PreferencesStore,
	events driven.EventPublisher,
	renderer driven.DocumentRenderer,
	mirrors []driven.ArtifactMirror,
	defaultDir string,
) *Orchestrator {
	return &Orchestrator{
		invoices:   invoices,
		tokens:     tokens,
		profiles:   profiles,
		results:    results,
		prefs:      prefs,
		events:     events,
		renderer:   renderer,
		mirrors:    mirrors,
		defaultDir: defaultDir,
		pageEvery:  pageInterval,
		sleep:      sleepContext,
		newID:      uuid.NewString,
	}
}

// Bind makes profile active without contacting the remote service and loads
// its cached result set, if any. Credentials are resolved on first use.
func (o *Orchestrator) Bind(ctx context.Context, profile domain.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	var items []domain.InvoiceSummary
	cached, err := o.results.Load(ctx, profile.Identity().Key())
	if err != nil {
		logger.Warn("Failed to load cached results for %s: %v", profile.Name, err)
	} else if cached != nil {
		items = cached.Items
		logger.Info("Loaded %d cached results for %s (fetched %s)",
			len(items), profile.Name, cached.FetchedAt.Format(time.RFC3339))
	}

	o.mu.Lock()
	o.profile = profile
	o.items = items
	o.mu.Unlock()
	return nil
}

// Identity returns the active identity.
func (o *Orchestrator) Identity() domain.Identity {
	return o.Profile().Identity()
}

// Profile returns the active profile.
func (o *Orchestrator) Profile() domain.Profile {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.profile
}

// Results returns a copy of the current result set.
func (o *Orchestrator) Results() []domain.InvoiceSummary {
	_, items := o.snapshot()
	return items
}

// SwitchIdentity makes the named profile active. Credentials and the cached
// result set are resolved before anything is replaced, so a failing switch
// leaves the previous profile and its results in place.
func (o *Orchestrator) SwitchIdentity(ctx context.Context, name string) error {
	if !o.gate.TryLock() {
		return domain.ErrJobRunning
	}
	defer o.gate.Unlock()

	profile, err := o.profiles.Profile(name)
	if err != nil {
		return fmt.Errorf("switch to %s: %w", name, err)
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("switch to %s: %w", name, err)
	}

	previous := o.Profile()
	if _, err := o.tokens.Credential(ctx, profile); err != nil {
		logger.Warn("Switch to %s failed, staying on %s: %v", name, previous.Name, err)
		return fmt.Errorf("resolve credentials for %s: %w", name, err)
	}

	cached, err := o.results.Load(ctx, profile.Identity().Key())
	if err != nil {
		logger.Warn("Switch to %s failed, staying on %s: %v", name, previous.Name, err)
		return fmt.Errorf("load cached results for %s: %w", name, err)
	}

	var items []domain.InvoiceSummary
	if cached != nil {
		items = cached.Items
	}

	o.mu.Lock()
	o.profile = profile
	o.items = items
	o.mu.Unlock()

	logger.Info("Active profile is now %s (%s)", profile.Name, profile.Identity().Key())
	return nil
}

// Search validates the request, fetches every page of results and replaces
// the current result set. The replacement only happens if ctx is still live
// once the last page has arrived.
func (o *Orchestrator) Search(ctx context.Context, req domain.SearchRequest) ([]domain.InvoiceSummary, error) {
	query, err := domain.NewSearchQuery(req)
	if err != nil {
		return nil, err
	}

	if !o.gate.TryLock() {
		return nil, domain.ErrJobRunning
	}
	defer o.gate.Unlock()

	profile, _ := o.snapshot()
	if profile.Name == "" {
		return nil, domain.ErrAuthRequired
	}

	logger.Section("Search")
	logger.Debug("Query: %s %s from %s", query.SubjectRole, query.DateField, query.From.Format(time.RFC3339))

	items, err := o.fetchAll(ctx, profile, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	o.mu.Lock()
	if err := ctx.Err(); err != nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("search: %w", err)
	}
	o.items = items
	o.mu.Unlock()

	key := profile.Identity().Key()
	if err := o.results.Save(context.WithoutCancel(ctx), key, query, items); err != nil {
		logger.Warn("Failed to cache results for %s: %v", key, err)
	}

	logger.Info("Search returned %d invoices", len(items))
	return cloneItems(items), nil
}

// Refresh re-runs the query stored for the active identity and appends
// records not seen before. The stored query itself is never overwritten.
func (o *Orchestrator) Refresh(ctx context.Context) (int, error) {
	if !o.gate.TryLock() {
		return 0, domain.ErrJobRunning
	}
	defer o.gate.Unlock()

	profile, _ := o.snapshot()
	if profile.Name == "" {
		return 0, domain.ErrAuthRequired
	}
	key := profile.Identity().Key()

	cached, err := o.results.Load(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load cached results: %w", err)
	}
	if cached == nil || cached.Query == nil {
		logger.Debug("No stored query for %s, nothing to refresh", key)
		return 0, nil
	}

	fresh, err := o.fetchAll(ctx, profile, *cached.Query)
	if err != nil {
		return 0, fmt.Errorf("refresh: %w", err)
	}

	o.mu.Lock()
	if err := ctx.Err(); err != nil {
		o.mu.Unlock()
		return 0, fmt.Errorf("refresh: %w", err)
	}
	merged, added := domain.MergeAppend(o.items, fresh)
	o.items = merged
	o.mu.Unlock()

	if err := o.results.SaveItemsOnly(context.WithoutCancel(ctx), key, merged); err != nil {
		logger.Warn("Failed to cache refreshed results for %s: %v", key, err)
	}
	o.events.Publish(domain.EventResultsRefreshed, domain.ResultsRefreshed{Count: len(merged), Added: added})

	logger.Debug("Refresh for %s: %d total, %d new", key, len(merged), added)
	return added, nil
}

// Details fetches the document behind one position of the current result set.
func (o *Orchestrator) Details(ctx context.Context, index int) (*domain.InvoiceDetails, error) {
	profile, items := o.snapshot()
	if len(items) == 0 {
		return nil, domain.ErrNoResults
	}
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: %d", domain.ErrIndexOutOfRange, index)
	}
	item := items[index]

	session, err := o.session(ctx, profile)
	if err != nil {
		return nil, err
	}
	raw, err := withBackoff(ctx, o.sleep, "fetch invoice "+item.KSeFNumber, func() ([]byte, error) {
		return o.invoices.FetchInvoice(ctx, session, item.KSeFNumber)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", item.KSeFNumber, err)
	}

	return &domain.InvoiceDetails{
		Index:   index,
		Summary: item,
		Content: string(raw),
		Size:    len(raw),
	}, nil
}

// fetchAll pages through the query until the service reports no more pages.
// Pages after the first are paced by pageEvery.
func (o *Orchestrator) fetchAll(ctx context.Context, profile domain.Profile, query domain.SearchQuery) ([]domain.InvoiceSummary, error) {
	session, err := o.session(ctx, profile)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if o.pageEvery > 0 {
		limit = rate.Every(o.pageEvery)
	}
	pacer := rate.NewLimiter(limit, 1)

	var items []domain.InvoiceSummary
	for offset := 0; ; {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}

		what := fmt.Sprintf("query page at offset %d", offset)
		page, err := withBackoff(ctx, o.sleep, what, func() (*domain.InvoicePage, error) {
			return o.invoices.QueryPage(ctx, session, query, offset, pageSize)
		})
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		logger.Debug("Fetched %d invoices at offset %d (more: %t)", len(page.Items), offset, page.HasMore)
		if !page.HasMore || len(page.Items) == 0 {
			return items, nil
		}
		offset += len(page.Items)
	}
}

func (o *Orchestrator) session(ctx context.Context, profile domain.Profile) (driven.Session, error) {
	if profile.Name == "" {
		return driven.Session{}, domain.ErrAuthRequired
	}
	cred, err := o.tokens.Credential(ctx, profile)
	if err != nil {
		return driven.Session{}, fmt.Errorf("resolve credentials: %w", err)
	}
	return driven.Session{Identity: profile.Identity(), AccessToken: cred.AccessToken}, nil
}

func (o *Orchestrator) snapshot() (domain.Profile, []domain.InvoiceSummary) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.profile, cloneItems(o.items)
}

func cloneItems(items []domain.InvoiceSummary) []domain.InvoiceSummary {
	if items == nil {
		return []domain.InvoiceSummary{}
	}
	out := make([]domain.InvoiceSummary, len(items))
	copy(out, items)
	return out
}
