package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Ensure TokenCache implements the interface.
var _ driving.TokenService = (*TokenCache)(nil)

// TokenCache decides per identity whether a cached credential is reused,
// refreshed or replaced by a full authentication, and persists the outcome.
type TokenCache struct {
	auth    driven.Authenticator
	store   driven.CredentialStore
	noCache bool
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenCache creates a token cache. With noCache set every request
// authenticates fully and nothing is persisted.
func NewTokenCache(auth driven.Authenticator, store driven.CredentialStore, noCache bool) *TokenCache {
	return &TokenCache{
		auth:    auth,
		store:   store,
		noCache: noCache,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lock serialises callers for one identity; other identities proceed.
func (c *TokenCache) lock(key string) func() {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Credential returns a usable credential for the profile.
func (c *TokenCache) Credential(ctx context.Context, profile domain.Profile) (*domain.Credential, error) {
	if c.noCache {
		return c.authenticate(ctx, profile)
	}

	key := profile.Identity().Key()
	defer c.lock(key)()

	cached := c.load(key)

	switch state := cached.State(c.now()); state {
	case domain.CredentialFresh:
		logger.Debug("Reusing cached credential for %s", key)
		return cached, nil
	case domain.CredentialNeedsRefresh:
		cred, err := c.refresh(ctx, profile, cached)
		if err == nil {
			return cred, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("Token refresh for %s failed, re-authenticating: %v", key, err)
	default:
		logger.Debug("No usable credential for %s (%s)", key, state)
	}

	cred, err := c.authenticate(ctx, profile)
	if err != nil {
		return nil, err
	}
	c.save(key, cred)
	return cred, nil
}

// Reauthenticate discards any cached credential and authenticates fully.
func (c *TokenCache) Reauthenticate(ctx context.Context, profile domain.Profile) (*domain.Credential, error) {
	if c.noCache {
		return c.authenticate(ctx, profile)
	}

	key := profile.Identity().Key()
	defer c.lock(key)()

	cred, err := c.authenticate(ctx, profile)
	if err != nil {
		return nil, err
	}
	c.save(key, cred)
	return cred, nil
}

// Status reports the validity window of the cached credential.
func (c *TokenCache) Status(identity domain.Identity) (domain.TokenStatus, error) {
	if c.noCache || identity.IsZero() {
		return domain.TokenStatus{}, nil
	}
	cred, err := c.store.Load(identity.Key())
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TokenStatus{}, nil
	}
	if err != nil {
		return domain.TokenStatus{}, fmt.Errorf("load credential: %w", err)
	}
	return cred.Status(), nil
}

func (c *TokenCache) load(key string) *domain.Credential {
	cred, err := c.store.Load(key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Failed to read cached credential for %s: %v", key, err)
		}
		return nil
	}
	return cred
}

func (c *TokenCache) save(key string, cred *domain.Credential) {
	if err := c.store.Save(key, *cred); err != nil {
		logger.Warn("Failed to persist credential for %s: %v", key, err)
	}
}

func (c *TokenCache) refresh(ctx context.Context, profile domain.Profile, cached *domain.Credential) (*domain.Credential, error) {
	logger.Debug("Refreshing access token for %s", profile.Identity().Key())
	cred, err := c.auth.Refresh(ctx, profile, cached.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = cached.RefreshToken
		cred.RefreshTokenExpiry = cached.RefreshTokenExpiry
	}
	c.save(profile.Identity().Key(), cred)
	return cred, nil
}

func (c *TokenCache) authenticate(ctx context.Context, profile domain.Profile) (*domain.Credential, error) {
	logger.Info("Authenticating profile %s", profile.Name)
	cred, err := c.auth.Authenticate(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("authenticate %s: %w", profile.Name, err)
	}
	return cred, nil
}
