package driving

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// Orchestrator owns the current identity and result set and runs jobs
// against them. Searches and downloads are serialised; a second job started
// while one is running fails with domain.ErrJobRunning.
type Orchestrator interface {
	// Search validates the request, fetches every page and replaces the
	// current result set. A cancelled search leaves the previous set intact.
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.InvoiceSummary, error)

	// Download writes the selected items (or all items) in the requested
	// formats, publishing progress events while it runs.
	Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error)

	// Results returns a copy of the current result set.
	Results() []domain.InvoiceSummary

	// Details fetches the document behind one position of the current set.
	Details(ctx context.Context, index int) (*domain.InvoiceDetails, error)

	// CheckExisting reports, per current item, which output files already exist.
	CheckExisting(check domain.ExistingCheck) ([]domain.ExistingFiles, error)

	// Identity returns the active identity.
	Identity() domain.Identity

	// Profile returns the active profile.
	Profile() domain.Profile

	// SwitchIdentity makes the named profile active. On failure the
	// previous identity and result set stay active.
	SwitchIdentity(ctx context.Context, name string) error

	// Refresh re-runs the stored query for the active identity and merges
	// new records onto the end of the current set.
	Refresh(ctx context.Context) (added int, err error)
}
