package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Ensure ResultCache implements the interface.
var _ driven.ResultCache = (*ResultCache)(nil)

// ResultCache is an in-memory implementation of driven.ResultCache.
type ResultCache struct {
	mu   sync.RWMutex
	rows map[string]domain.CachedResults
	now  func() time.Time
}

// NewResultCache creates a new in-memory result cache.
func NewResultCache() *ResultCache {
	return &ResultCache{
		rows: make(map[string]domain.CachedResults),
		now:  time.Now,
	}
}

// Load returns the cached row, or nil on a miss.
func (c *ResultCache) Load(_ context.Context, identityKey string) (*domain.CachedResults, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.rows[identityKey]
	if !ok {
		return nil, nil
	}
	row.Items = append([]domain.InvoiceSummary(nil), row.Items...)
	return &row, nil
}

// Save upserts the full row.
func (c *ResultCache) Save(_ context.Context, identityKey string, query domain.SearchQuery, items []domain.InvoiceSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := query
	c.rows[identityKey] = domain.CachedResults{
		IdentityKey: identityKey,
		Query:       &q,
		Items:       append([]domain.InvoiceSummary(nil), items...),
		FetchedAt:   c.now(),
	}
	return nil
}

// SaveItemsOnly replaces items and timestamp of an existing row.
func (c *ResultCache) SaveItemsOnly(_ context.Context, identityKey string, items []domain.InvoiceSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.rows[identityKey]
	if !ok {
		return nil
	}
	row.Items = append([]domain.InvoiceSummary(nil), items...)
	row.FetchedAt = c.now()
	c.rows[identityKey] = row
	return nil
}
