package domain

import "time"

// Safety margins applied when deciding whether a cached credential is usable.
const (
	// AccessTokenMargin is how long an access token must remain valid to be reused.
	AccessTokenMargin = 10 * time.Minute

	// RefreshTokenMargin is how long a refresh token must remain valid to be exchanged.
	RefreshTokenMargin = time.Minute
)

// Credential is a bearer access token plus a longer-lived refresh token.
// The issuing authority is assumed to keep AccessTokenExpiry <= RefreshTokenExpiry.
type Credential struct {
	AccessToken        string    `json:"access_token"`
	AccessTokenExpiry  time.Time `json:"access_token_expiry"`
	RefreshToken       string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry,omitempty"`
}

// CredentialState is the outcome of checking a cached credential.
type CredentialState int

// Credential states, in the order the token cache resolves them.
const (
	// CredentialMissing means nothing usable is cached; authenticate fully.
	CredentialMissing CredentialState = iota
	// CredentialFresh means the access token can be reused as-is.
	CredentialFresh
	// CredentialNeedsRefresh means the access token is close to expiry but the
	// refresh token can still be exchanged.
	CredentialNeedsRefresh
)

// String returns the state name.
func (s CredentialState) String() string {
	switch s {
	case CredentialFresh:
		return "fresh"
	case CredentialNeedsRefresh:
		return "needs_refresh"
	default:
		return "missing"
	}
}

// State classifies the credential at time now.
func (c *Credential) State(now time.Time) CredentialState {
	if c == nil || c.AccessToken == "" {
		return CredentialMissing
	}
	accessOK := c.AccessTokenExpiry.After(now.Add(AccessTokenMargin))
	if c.RefreshToken == "" {
		if accessOK {
			return CredentialFresh
		}
		return CredentialMissing
	}
	if !c.RefreshTokenExpiry.After(now.Add(RefreshTokenMargin)) {
		return CredentialMissing
	}
	if accessOK {
		return CredentialFresh
	}
	return CredentialNeedsRefresh
}

// TokenStatus reports cached credential validity without touching the network.
type TokenStatus struct {
	AccessTokenValidUntil  *time.Time `json:"accessTokenValidUntil,omitempty"`
	RefreshTokenValidUntil *time.Time `json:"refreshTokenValidUntil,omitempty"`
}

// Status returns the validity window of the credential.
func (c *Credential) Status() TokenStatus {
	var st TokenStatus
	if c == nil {
		return st
	}
	if !c.AccessTokenExpiry.IsZero() {
		t := c.AccessTokenExpiry
		st.AccessTokenValidUntil = &t
	}
	if !c.RefreshTokenExpiry.IsZero() {
		t := c.RefreshTokenExpiry
		st.RefreshTokenValidUntil = &t
	}
	return st
}
