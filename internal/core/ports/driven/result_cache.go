package driven

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// ResultCache persists the most recent result set per identity key.
type ResultCache interface {
	// Load returns the cached row, or nil and no error on a miss.
	// Corrupt rows are reported as a miss.
	Load(ctx context.Context, identityKey string) (*domain.CachedResults, error)

	// Save upserts the full row. Used by manual searches.
	Save(ctx context.Context, identityKey string, query domain.SearchQuery, items []domain.InvoiceSummary) error

	// SaveItemsOnly replaces the items and timestamp but leaves the stored
	// query untouched. It does nothing if no row exists yet.
	SaveItemsOnly(ctx context.Context, identityKey string, items []domain.InvoiceSummary) error
}
