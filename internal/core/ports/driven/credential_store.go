package driven

import "github.com/custodia-labs/ksef-desk/internal/core/domain"

// CredentialStore persists one credential per identity key.
type CredentialStore interface {
	// Load returns the credential stored under key.
	// Returns domain.ErrNotFound if none is stored.
	Load(key string) (*domain.Credential, error)

	// Save stores or replaces the credential under key.
	Save(key string, cred domain.Credential) error
}
