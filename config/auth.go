package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

const defaultSilentRefreshFactor = 0.75

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// ClaimsConfig holds JMESPath expressions used to pull identity fields out of ID token claims.
// Claim layouts differ between identity providers, so none of these are assumed.
type ClaimsConfig struct {
	CommonName string `env:"COMMON_NAME" envDefault:"name"`
	Username   string `env:"USERNAME"    envDefault:"preferred_username"`
	Roles      string `env:"ROLES"       envDefault:"realm_access.roles"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Username   string        `env:"USERNAME"    envDefault:"dev-user"`
	CommonName string        `env:"COMMON_NAME" envDefault:"Dev User"`
	Roles      []string      `env:"ROLES"       envDefault:"admins"   envSeparator:";"`
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"1h"`
}

// AuthConfig groups authentication settings that come from the process environment.
// Issuer, client ID and the allow-list come from the remote configuration document.
type AuthConfig struct {
	// Mode determines which OIDC client implementation to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// Claims maps identity fields onto ID token claim paths.
	Claims ClaimsConfig `envPrefix:"AUTH_CLAIM_"`

	// SilentRefreshFactor is the fraction of token lifetime after which a silent refresh fires.
	SilentRefreshFactor float64 `env:"AUTH_SILENT_REFRESH_FACTOR" envDefault:"0.75"`

	// OpenBrowser opens authorization and end-session URLs in the system browser.
	// When false the URLs are only logged.
	OpenBrowser bool `env:"AUTH_OPEN_BROWSER" envDefault:"false"`

	// HTTPTimeout bounds discovery, token exchange and refresh requests.
	HTTPTimeout time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"30s"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModeOAuth
	}
	if a.SilentRefreshFactor <= 0 || a.SilentRefreshFactor >= 1 {
		a.SilentRefreshFactor = defaultSilentRefreshFactor
	}
	if a.HTTPTimeout <= 0 {
		a.HTTPTimeout = 30 * time.Second
	}
	a.Claims.CommonName = strings.TrimSpace(a.Claims.CommonName)
	a.Claims.Username = strings.TrimSpace(a.Claims.Username)
	a.Claims.Roles = strings.TrimSpace(a.Claims.Roles)
	if a.DevAuth.TokenTTL <= 0 {
		a.DevAuth.TokenTTL = time.Hour
	}
}
