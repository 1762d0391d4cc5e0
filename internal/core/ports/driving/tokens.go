package driving

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// TokenService hands out bearer credentials for identities.
type TokenService interface {
	// Credential returns a usable credential, refreshing or re-authenticating as needed.
	Credential(ctx context.Context, profile domain.Profile) (*domain.Credential, error)

	// Reauthenticate discards any cached credential and authenticates fully.
	Reauthenticate(ctx context.Context, profile domain.Profile) (*domain.Credential, error)

	// Status reports the expiry of the cached credential without network calls.
	Status(identity domain.Identity) (domain.TokenStatus, error)
}
