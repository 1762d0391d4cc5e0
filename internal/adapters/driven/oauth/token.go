// Package oauth implements driven.Authenticator over OAuth 2.0 token
// endpoints: client credentials and device authorization for full
// authentication, and the refresh_token grant for renewals.
package oauth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// Fallback lifetimes used when neither the token response nor the token
// itself says when it expires.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// credentialFromToken converts an issued token into a Credential.
func credentialFromToken(tok *oauth2.Token, now time.Time) *domain.Credential {
	cred := &domain.Credential{
		AccessToken:       tok.AccessToken,
		AccessTokenExpiry: accessExpiry(tok, now),
		RefreshToken:      tok.RefreshToken,
	}
	if tok.RefreshToken != "" {
		cred.RefreshTokenExpiry = refreshExpiry(tok, now)
	}
	return cred
}

// accessExpiry prefers expires_in, then the JWT exp claim, then DefaultAccessTTL.
func accessExpiry(tok *oauth2.Token, now time.Time) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	if exp, ok := jwtExpiry(tok.AccessToken); ok {
		return exp
	}
	return now.Add(DefaultAccessTTL)
}

// refreshExpiry prefers refresh_expires_in, then the JWT exp claim of the
// refresh token, then DefaultRefreshTTL.
func refreshExpiry(tok *oauth2.Token, now time.Time) time.Time {
	if secs, ok := numberExtra(tok, "refresh_expires_in"); ok && secs > 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	if exp, ok := jwtExpiry(tok.RefreshToken); ok {
		return exp
	}
	return now.Add(DefaultRefreshTTL)
}

// jwtExpiry reads the exp claim without verifying the signature. The token
// was received directly from the issuer over TLS; only its lifetime is used.
func jwtExpiry(raw string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func numberExtra(tok *oauth2.Token, key string) (int64, bool) {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
