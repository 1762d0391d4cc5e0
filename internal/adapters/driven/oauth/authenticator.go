package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// DeviceTimeout bounds how long a device authorization is polled.
const DeviceTimeout = 2 * time.Minute

// Ensure Authenticator implements the interface.
var _ driven.Authenticator = (*Authenticator)(nil)

// DevicePrompt shows the user where to confirm a device authorization.
type DevicePrompt func(profile domain.Profile, resp *oauth2.DeviceAuthResponse)

// Authenticator obtains credentials from a profile's OAuth token endpoint.
type Authenticator struct {
	client        *http.Client
	prompt        DevicePrompt
	deviceTimeout time.Duration
	now           func() time.Time
}

// NewAuthenticator creates an authenticator. A nil client uses a client with
// a 30 second timeout; a nil prompt logs the verification URL and code.
func NewAuthenticator(client *http.Client, prompt DevicePrompt) *Authenticator {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if prompt == nil {
		prompt = logPrompt
	}
	return &Authenticator{
		client:        client,
		prompt:        prompt,
		deviceTimeout: DeviceTimeout,
		now:           time.Now,
	}
}

// Authenticate performs a full authentication using the profile's grant.
func (a *Authenticator) Authenticate(ctx context.Context, profile domain.Profile) (*domain.Credential, error) {
	if profile.TokenURL == "" {
		return nil, fmt.Errorf("%w: profile %s has no token_url", domain.ErrAuthRequired, profile.Name)
	}
	ctx = a.withClient(ctx)

	var (
		tok *oauth2.Token
		err error
	)
	switch profile.Grant {
	case domain.GrantDevice:
		tok, err = a.deviceToken(ctx, profile)
	default:
		tok, err = clientCredentials(profile).Token(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthRequired, describe(err))
	}

	cred := credentialFromToken(tok, a.now())
	logger.Debug("Authenticated %s, access token valid until %s", profile.Name, cred.AccessTokenExpiry.Format(time.RFC3339))
	return cred, nil
}

// Refresh exchanges refreshToken for a new access token.
func (a *Authenticator) Refresh(ctx context.Context, profile domain.Profile, refreshToken string) (*domain.Credential, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", domain.ErrTokenRefreshFailed)
	}
	ctx = a.withClient(ctx)

	// An already-expired token forces the token source to use the refresh grant.
	src := oauthConfig(profile).TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, describe(err)
	}
	// The token source copies the old refresh token when the server omits one.
	if tok.RefreshToken == refreshToken {
		tok.RefreshToken = ""
	}
	return credentialFromToken(tok, a.now()), nil
}

func (a *Authenticator) deviceToken(ctx context.Context, profile domain.Profile) (*oauth2.Token, error) {
	if profile.DeviceAuthURL == "" {
		return nil, fmt.Errorf("profile %s has no device_auth_url", profile.Name)
	}
	cfg := oauthConfig(profile)

	ctx, cancel := context.WithTimeout(ctx, a.deviceTimeout)
	defer cancel()

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device authorization: %w", err)
	}
	a.prompt(profile, resp)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("device authorization not confirmed within %s", a.deviceTimeout)
		}
		return nil, fmt.Errorf("device token: %w", err)
	}
	return tok, nil
}

func (a *Authenticator) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

func oauthConfig(profile domain.Profile) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret,
		Scopes:       profile.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:      profile.TokenURL,
			DeviceAuthURL: profile.DeviceAuthURL,
		},
	}
}

func clientCredentials(profile domain.Profile) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret,
		TokenURL:     profile.TokenURL,
		Scopes:       profile.Scopes,
	}
}

// describe flattens an oauth2.RetrieveError into its error code and description.
func describe(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		if re.ErrorDescription != "" {
			return fmt.Errorf("token error: %s - %s", re.ErrorCode, re.ErrorDescription)
		}
		return fmt.Errorf("token error: %s", re.ErrorCode)
	}
	return err
}

func logPrompt(profile domain.Profile, resp *oauth2.DeviceAuthResponse) {
	uri := resp.VerificationURIComplete
	if uri == "" {
		uri = resp.VerificationURI
	}
	logger.Info("Profile %s: open %s and enter code %s", profile.Name, uri, resp.UserCode)
}
