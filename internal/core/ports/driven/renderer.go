package driven

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// DocumentRenderer turns a raw invoice document into a PDF.
type DocumentRenderer interface {
	Render(ctx context.Context, raw []byte, summary domain.InvoiceSummary) ([]byte, error)
}
