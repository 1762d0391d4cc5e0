package memory

import (
	"sync"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Ensure CredentialStore implements the interface.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore is an in-memory implementation of driven.CredentialStore.
type CredentialStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		creds: make(map[string]domain.Credential),
	}
}

// Load retrieves the credential stored under key.
func (s *CredentialStore) Load(key string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

// Save stores or replaces the credential under key.
func (s *CredentialStore) Save(key string, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[key] = cred
	return nil
}
