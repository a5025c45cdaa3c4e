package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/target/mmk-ui-shell/internal/broadcast"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"github.com/target/mmk-ui-shell/internal/ports"
	"golang.org/x/sync/singleflight"
)

const (
	authOrigin  = "Auth Service"
	msgDisabled = "Authentication and Authorization is disabled"

	defaultScope  = "openid profile"
	defaultTarget = "/"
)

// AuthServiceConfig holds the instance-derived OIDC parameters.
type AuthServiceConfig struct {
	RedirectURI   string  // Required: callback URL served by this instance
	PostLogoutURI string  // Used when the document sets no postLogoutUri
	RefreshFactor float64 // Fraction of token lifetime before a silent refresh
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Client   ports.OIDCClient         // Required
	Settings ports.AuthSettingsSource // Required: usually the ConfigService
	Claims   ports.ClaimsMapper       // Required
	Logger   ports.Logger             // Required: application log sink
	Config   AuthServiceConfig
}

// AuthService owns the session state of one shell instance. State is mutated only by
// its own methods and OIDC client events; consumers read Snapshot or Subscribe.
//
// Overlapping calls of the same operation (login, logout, refresh) join the call in
// flight and share its result.
type AuthService struct {
	client   ports.OIDCClient
	settings ports.AuthSettingsSource
	claims   ports.ClaimsMapper
	logger   ports.Logger
	cfg      AuthServiceConfig

	flight singleflight.Group
	hub    *broadcast.Hub[domainauth.SessionState]

	mu          sync.Mutex
	state       domainauth.SessionState
	unsubscribe func()
	configured  bool
}

// NewAuthService constructs an AuthService. It panics when a required dependency is nil.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Client == nil || opts.Settings == nil || opts.Claims == nil || opts.Logger == nil {
		panic("AuthService requires Client, Settings, Claims and Logger")
	}
	return &AuthService{
		client:   opts.Client,
		settings: opts.Settings,
		claims:   opts.Claims,
		logger:   opts.Logger,
		cfg:      opts.Config,
		hub:      broadcast.NewHub[domainauth.SessionState](),
		state:    domainauth.SessionState{Phase: domainauth.PhaseNotConfigured},
	}
}

// Enabled reports the authConfig.enabled flag of the loaded document.
func (s *AuthService) Enabled() bool { return s.settings.Auth().Enabled }

// AllowsURL reports whether requests to rawURL receive the bearer token.
func (s *AuthService) AllowsURL(rawURL string) bool { return s.settings.Auth().AllowsURL(rawURL) }

// Issuer returns the configured issuer URL.
func (s *AuthService) Issuer() string { return s.settings.Auth().Issuer }

// Snapshot returns the current session state.
func (s *AuthService) Snapshot() domainauth.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AuthService) snapshotLocked() domainauth.SessionState {
	st := s.state
	st.Identity.Roles = append([]string(nil), s.state.Identity.Roles...)
	return st
}

// Subscribe returns a channel that first receives the current state and then every change.
// cancel releases the subscription.
func (s *AuthService) Subscribe(buffer int) (<-chan domainauth.SessionState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.Subscribe(buffer, s.snapshotLocked())
}

// CanActivateProtectedRoute is true when the session is authenticated and done loading.
func (s *AuthService) CanActivateProtectedRoute() bool {
	return s.Snapshot().CanActivateProtectedRoute()
}

// HasRole reports whether the current identity holds role.
func (s *AuthService) HasRole(role string) bool {
	return s.Snapshot().Identity.HasRole(role)
}

// update applies fn to the state and publishes the result when it changed.
func (s *AuthService) update(fn func(*domainauth.SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.snapshotLocked()
	fn(&s.state)
	after := s.snapshotLocked()
	if !sameState(before, after) {
		s.hub.Publish(after)
	}
}

func sameState(a, b domainauth.SessionState) bool {
	if a.Phase != b.Phase || a.IsAuthenticated != b.IsAuthenticated || a.IsDoneLoading != b.IsDoneLoading {
		return false
	}
	if a.Identity.CommonName != b.Identity.CommonName || a.Identity.Username != b.Identity.Username {
		return false
	}
	if len(a.Identity.Roles) != len(b.Identity.Roles) {
		return false
	}
	for i := range a.Identity.Roles {
		if a.Identity.Roles[i] != b.Identity.Roles[i] {
			return false
		}
	}
	return true
}

// Bootstrap is the startup entry point. With auth disabled it warns and marks loading done.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Warning(msgDisabled, authOrigin)
		s.markDoneLoading()
		return nil
	}
	return s.ConfigureAndLogin(ctx)
}

// ConfigureAndLogin wires client events, configures the client and runs discovery and login.
// It runs once per service; later calls return nil. Protocol failures are logged and the
// session continues logged out. isDoneLoading becomes true when the attempt completes.
func (s *AuthService) ConfigureAndLogin(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Warning(msgDisabled, authOrigin)
		return nil
	}

	s.mu.Lock()
	if s.configured {
		s.mu.Unlock()
		return nil
	}
	s.configured = true
	s.mu.Unlock()

	// Subscribe before any client call so no event is missed.
	s.wireEvents()
	s.setPhase(domainauth.PhaseConfiguring)
	defer s.markDoneLoading()

	if err := s.client.Configure(s.clientConfig()); err != nil {
		s.logger.Error(fmt.Sprintf("OAuthErrorEvent: %v", err), authOrigin, err)
		s.setPhase(domainauth.PhaseNotConfigured)
		return nil
	}
	s.client.SetupAutomaticSilentRefresh()

	s.setPhase(domainauth.PhaseAwaitingDiscovery)
	if err := s.client.LoadDiscoveryDocumentAndTryLogin(ctx); err != nil {
		// The client reports the failure as an error event.
		s.syncAuthenticated()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return nil
	}
	s.syncAuthenticated()

	if !s.client.HasValidAccessToken() {
		if err := s.client.InitLoginFlow(ctx, defaultTarget); err != nil {
			s.logger.Error(fmt.Sprintf("OAuthErrorEvent: %v", err), authOrigin, err)
		}
		return nil
	}
	s.refreshIdentity()
	return nil
}

func (s *AuthService) clientConfig() domainauth.ClientConfig {
	settings := s.settings.Auth()
	postLogout := settings.PostLogoutURI
	if postLogout == "" {
		postLogout = s.cfg.PostLogoutURI
	}
	return domainauth.ClientConfig{
		Issuer:                settings.Issuer,
		ClientID:              settings.ClientID,
		Resource:              settings.Resource,
		ResponseType:          "code",
		Scope:                 defaultScope,
		RedirectURI:           s.cfg.RedirectURI,
		PostLogoutRedirectURI: postLogout,
		ShowDebugInformation:  settings.ShowDebugInformation,
		SkipSignatureCheck:    true,
		RefreshFactor:         s.cfg.RefreshFactor,
	}
}

func (s *AuthService) wireEvents() {
	unsubscribe := s.client.OnEvent(s.handleEvent)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// handleEvent mirrors token validity on every event and reacts to a few event types.
func (s *AuthService) handleEvent(ev domainauth.Event) {
	if ev.IsError() {
		s.logger.Error(fmt.Sprintf("OAuthErrorEvent: %v", ev.Reason), authOrigin, ev)
	}
	switch ev.Type {
	case domainauth.EventTokenExpires:
		// The client's automatic refresh is starting.
		if s.client.HasValidAccessToken() {
			s.update(func(st *domainauth.SessionState) {
				if st.Phase == domainauth.PhaseLoggedIn {
					st.Phase = domainauth.PhaseRefreshing
				}
			})
		}
	case domainauth.EventTokenRefreshed, domainauth.EventTokenRefreshError, domainauth.EventSilentRefreshError:
		s.endRefreshing()
	case domainauth.EventTokenReceived:
		s.refreshIdentity()
	case domainauth.EventSessionTerminated, domainauth.EventSessionError:
		s.endRefreshing()
		s.logger.Error("OAuthError: Session Error", authOrigin, ev)
	case domainauth.EventLogout:
		s.update(func(st *domainauth.SessionState) { st.Identity = domainauth.Identity{} })
	}
	s.syncAuthenticated()
}

// syncAuthenticated copies the client's token validity into the state and derives the phase.
func (s *AuthService) syncAuthenticated() {
	valid := s.client.HasValidAccessToken()
	s.update(func(st *domainauth.SessionState) {
		st.IsAuthenticated = valid
		switch st.Phase {
		case domainauth.PhaseConfiguring, domainauth.PhaseRefreshing, domainauth.PhaseNotConfigured:
			return
		}
		if valid {
			st.Phase = domainauth.PhaseLoggedIn
		} else {
			st.Phase = domainauth.PhaseLoggedOut
		}
	})
}

// endRefreshing lets syncAuthenticated derive the phase again once a refresh settles.
func (s *AuthService) endRefreshing() {
	s.update(func(st *domainauth.SessionState) {
		if st.Phase == domainauth.PhaseRefreshing {
			st.Phase = domainauth.PhaseLoggedIn
		}
	})
}

func (s *AuthService) refreshIdentity() {
	id := s.claims.Map(s.client.IdentityClaims())
	s.update(func(st *domainauth.SessionState) { st.Identity = id })
}

func (s *AuthService) setPhase(p domainauth.Phase) {
	s.update(func(st *domainauth.SessionState) { st.Phase = p })
}

// markDoneLoading sets isDoneLoading. It never reverts.
func (s *AuthService) markDoneLoading() {
	s.update(func(st *domainauth.SessionState) { st.IsDoneLoading = true })
}

// Login starts an interactive login that returns to targetURL, or to "/" when empty.
func (s *AuthService) Login(ctx context.Context, targetURL string) error {
	if !s.Enabled() {
		s.logger.Warning(msgDisabled, authOrigin)
		return nil
	}
	if targetURL == "" {
		targetURL = defaultTarget
	}
	_, err, _ := s.flight.Do("login", func() (any, error) {
		return nil, s.client.InitLoginFlow(ctx, targetURL)
	})
	if err != nil {
		s.logger.Error(fmt.Sprintf("OAuthErrorEvent: %v", err), authOrigin, err)
	}
	return err
}

// CompleteLogin processes the authorization response and returns a safe local target.
func (s *AuthService) CompleteLogin(ctx context.Context, callback *url.URL) (string, error) {
	if !s.Enabled() {
		s.logger.Warning(msgDisabled, authOrigin)
		return "", apperrors.New(apperrors.ErrCodeDisabled, msgDisabled)
	}
	if callback == nil {
		return "", apperrors.Validation("callback URL is required")
	}
	v, err, _ := s.flight.Do("complete:"+callback.Query().Get("state"), func() (any, error) {
		return s.client.TryLogin(ctx, callback)
	})
	if err != nil {
		return "", err
	}
	return safeTarget(v.(string)), nil
}

// safeTarget accepts only same-origin relative paths.
func safeTarget(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return defaultTarget
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultTarget
	}
	return target
}

// Logout clears the session; the storage layer propagates it to other instances.
func (s *AuthService) Logout(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Warning(msgDisabled, authOrigin)
		return nil
	}
	_, err, _ := s.flight.Do("logout", func() (any, error) {
		return nil, s.client.LogOut(ctx)
	})
	if err != nil {
		s.logger.Error(fmt.Sprintf("OAuthErrorEvent: %v", err), authOrigin, err)
	}
	return err
}

// Refresh attempts a silent renewal. Success and failure are logged, never returned as an error.
func (s *AuthService) Refresh(ctx context.Context) (domainauth.TokenInfo, bool) {
	if !s.Enabled() {
		s.logger.Warning(msgDisabled, authOrigin)
		return domainauth.TokenInfo{}, false
	}
	v, err, _ := s.flight.Do("refresh", func() (any, error) {
		var prev domainauth.Phase
		s.update(func(st *domainauth.SessionState) {
			prev = st.Phase
			st.Phase = domainauth.PhaseRefreshing
		})
		info, err := s.client.SilentRefresh(ctx)
		s.update(func(st *domainauth.SessionState) {
			if st.Phase == domainauth.PhaseRefreshing {
				st.Phase = prev
			}
		})
		s.syncAuthenticated()
		return info, err
	})
	if err != nil {
		s.logger.Error("Auth Service Token Refresh Error", authOrigin, err)
		return domainauth.TokenInfo{}, false
	}
	info := v.(domainauth.TokenInfo)
	s.logger.Verbose("Auth Service Token Refreshed", authOrigin, info)
	return info, true
}

// Close detaches from the client and ends subscriptions.
func (s *AuthService) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	s.client.Close()
	s.hub.Close()
}
