package driven

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// Session is the identity and bearer token a remote call is made with.
type Session struct {
	Identity    domain.Identity
	AccessToken string
}

// InvoiceService is the remote metadata and content API.
// Implementations return a *domain.RateLimitError when the API asks the
// client to slow down; the caller owns retrying.
type InvoiceService interface {
	// QueryPage returns one page of metadata starting at offset.
	QueryPage(ctx context.Context, s Session, q domain.SearchQuery, offset, size int) (*domain.InvoicePage, error)

	// FetchInvoice returns the raw invoice document.
	FetchInvoice(ctx context.Context, s Session, ksefNumber string) ([]byte, error)
}
