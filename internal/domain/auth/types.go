package auth

// Package auth contains domain-level types for the shell's authentication session.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"strings"
	"time"
)

// Phase is the lifecycle stage of the auth session manager.
type Phase string

const (
	PhaseNotConfigured     Phase = "not_configured"
	PhaseConfiguring       Phase = "configuring"
	PhaseAwaitingDiscovery Phase = "awaiting_discovery"
	PhaseLoggedOut         Phase = "logged_out"
	PhaseLoggedIn          Phase = "logged_in"
	PhaseRefreshing        Phase = "refreshing"
)

// Identity holds display fields extracted from ID token claims.
// Which claims feed each field is deployment configuration.
type Identity struct {
	CommonName string   `json:"common_name"`
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
}

// RolesDisplay returns the roles sorted and joined with ", ".
func (i Identity) RolesDisplay() string {
	roles := slices.Clone(i.Roles)
	slices.Sort(roles)
	return strings.Join(roles, ", ")
}

// HasRole reports whether role is assigned, compared case-insensitively.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// SessionState is a snapshot of the session signals.
type SessionState struct {
	Phase           Phase    `json:"phase"`
	IsAuthenticated bool     `json:"is_authenticated"`
	IsDoneLoading   bool     `json:"is_done_loading"`
	Identity        Identity `json:"identity"`
}

// CanActivateProtectedRoute is true iff the session is authenticated and done loading.
func (s SessionState) CanActivateProtectedRoute() bool {
	return s.IsAuthenticated && s.IsDoneLoading
}

// TokenInfo describes a token response without exposing token values.
type TokenInfo struct {
	TokenType       string    `json:"token_type"`
	ExpiresAt       time.Time `json:"expires_at"`
	Scope           string    `json:"scope,omitempty"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	HasIDToken      bool      `json:"has_id_token"`
}

// ClientConfig configures an OIDC client for one shell instance.
type ClientConfig struct {
	Issuer                string
	ClientID              string
	Resource              string
	ResponseType          string
	Scope                 string
	RedirectURI           string
	PostLogoutRedirectURI string
	ShowDebugInformation  bool

	// SkipSignatureCheck installs a no-op ID token signature validator.
	// Issuer, audience and expiry are still checked.
	SkipSignatureCheck bool

	// RefreshFactor is the fraction of token lifetime before a silent refresh.
	RefreshFactor float64
}

// Scopes splits Scope on whitespace.
func (c ClientConfig) Scopes() []string {
	return strings.Fields(c.Scope)
}
