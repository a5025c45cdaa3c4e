package ports

// Package ports defines interfaces (hexagonal ports) for the shell's session behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"net/url"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
)

// EventHandler receives OIDC client events in emission order.
type EventHandler func(domainauth.Event)

// OIDCClient is the delegated OAuth2/OIDC client. It owns discovery, code exchange,
// PKCE, token storage and refresh. Services only sequence its calls.
type OIDCClient interface {
	// Configure sets issuer, client and redirect parameters. It performs no I/O.
	Configure(cfg domainauth.ClientConfig) error

	// OnEvent registers h and returns a function that removes it.
	OnEvent(h EventHandler) (unsubscribe func())

	// SetupAutomaticSilentRefresh schedules a silent refresh before each token expires.
	SetupAutomaticSilentRefresh()

	// LoadDiscoveryDocumentAndTryLogin fetches discovery metadata and restores any stored session.
	LoadDiscoveryDocumentAndTryLogin(ctx context.Context) error

	// TryLogin completes an authorization response delivered to the redirect URI
	// and returns the target preserved when the flow started.
	TryLogin(ctx context.Context, callback *url.URL) (target string, err error)

	// HasValidAccessToken reports whether a non-expired access token is stored.
	HasValidAccessToken() bool

	// AccessToken returns the stored access token or "".
	AccessToken() string

	// IdentityClaims returns the claims of the stored ID token, or nil.
	IdentityClaims() map[string]any

	// InitLoginFlow starts an interactive Authorization Code + PKCE login.
	InitLoginFlow(ctx context.Context, target string) error

	// LogOut clears stored tokens and navigates to the end-session endpoint when available.
	LogOut(ctx context.Context) error

	// SilentRefresh renews the tokens without user interaction.
	SilentRefresh(ctx context.Context) (domainauth.TokenInfo, error)

	// Close stops timers and releases resources.
	Close()
}

// ClaimsMapper maps ID token claims to an identity.
type ClaimsMapper interface {
	Map(claims map[string]any) domainauth.Identity
}

// Navigator sends the user agent to a URL (authorization or end-session endpoint).
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}
