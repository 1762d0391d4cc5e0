package driven

import (
	"context"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// Authenticator issues credentials for a profile.
type Authenticator interface {
	// Authenticate performs a full authentication.
	Authenticate(ctx context.Context, profile domain.Profile) (*domain.Credential, error)

	// Refresh exchanges a still-valid refresh token for a new access token.
	// The returned credential may carry an empty refresh token, in which
	// case the caller keeps the previous one.
	Refresh(ctx context.Context, profile domain.Profile, refreshToken string) (*domain.Credential, error)
}
