package driven

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// ArtifactMirror copies finished download artifacts to a remote store.
type ArtifactMirror interface {
	Name() string
	Store(ctx context.Context, identity domain.Identity, name string, data []byte) error
}
