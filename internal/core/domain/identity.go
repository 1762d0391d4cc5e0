package domain

import "strings"

// Environment selects which remote API instance an identity talks to.
type Environment string

// Supported environments.
const (
	EnvironmentTest       Environment = "test"
	EnvironmentDemo       Environment = "demo"
	EnvironmentProduction Environment = "prod"
)

// IsValid returns true if the environment is recognised.
func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentTest, EnvironmentDemo, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (e Environment) String() string {
	return string(e)
}

// Identity selects which remote credentials and configuration apply.
// Exactly one Identity is active at a time.
type Identity struct {
	Name        string      `json:"name"`
	NIP         string      `json:"nip"`
	Environment Environment `json:"environment"`
}

// Key identifies the identity in the token and result caches.
func (i Identity) Key() string {
	return i.NIP + "@" + string(i.Environment)
}

// IsZero reports whether no identity is set.
func (i Identity) IsZero() bool {
	return i.NIP == "" && i.Name == ""
}

// Grant types understood by the authenticator.
const (
	GrantClientCredentials = "client_credentials"
	GrantDevice            = "device"
)

// Profile is a configured identity together with the settings needed to
// obtain credentials for it.
type Profile struct {
	Name          string   `toml:"name" json:"name"`
	NIP           string   `toml:"nip" json:"nip"`
	Environment   string   `toml:"environment" json:"environment"`
	ClientID      string   `toml:"client_id" json:"-"`
	ClientSecret  string   `toml:"client_secret,omitempty" json:"-"`
	TokenURL      string   `toml:"token_url" json:"-"`
	DeviceAuthURL string   `toml:"device_auth_url,omitempty" json:"-"`
	Grant         string   `toml:"grant,omitempty" json:"-"`
	Scopes        []string `toml:"scopes,omitempty" json:"-"`
}

// Identity returns the identity this profile selects.
func (p Profile) Identity() Identity {
	return Identity{
		Name:        p.Name,
		NIP:         p.NIP,
		Environment: Environment(strings.ToLower(p.Environment)),
	}
}

// Validate checks the fields every profile needs.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("profile.name", "must not be empty")
	}
	if !isDigits(p.NIP) || len(p.NIP) != 10 {
		return NewValidationError("profile.nip", "must be 10 digits")
	}
	if !p.Identity().Environment.IsValid() {
		return NewValidationError("profile.environment", "must be one of test, demo, prod")
	}
	switch p.Grant {
	case "", GrantClientCredentials, GrantDevice:
	default:
		return NewValidationError("profile.grant", "must be client_credentials or device")
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
