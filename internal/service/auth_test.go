package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ui-shell/internal/adapters/claims"
	"github.com/target/mmk-ui-shell/internal/domain/appconfig"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	mocks "github.com/target/mmk-ui-shell/internal/mocks/auth"
)

type staticSettings appconfig.AuthSettings

func (s staticSettings) Auth() appconfig.AuthSettings { return appconfig.AuthSettings(s) }

var enabledSettings = staticSettings{
	Enabled:     true,
	Issuer:      "https://idp.example.com/realms/mmk",
	ClientID:    "mmk-ui",
	AllowedURLs: []string{"https://api.example.com/v1/jobs"},
}

var keycloakClaims = map[string]any{
	"name":               "Ada Lovelace",
	"preferred_username": "ada",
	"realm_access":       map[string]any{"roles": []any{"users", "admins"}},
}

func newTestAuthService(t *testing.T, settings staticSettings) (*AuthService, *mocks.FakeOIDCClient, *mocks.RecordingLogger) {
	t.Helper()
	mapper, err := claims.NewMapper(claims.Paths{
		CommonName: "name",
		Username:   "preferred_username",
		Roles:      "realm_access.roles",
	})
	require.NoError(t, err)

	client := mocks.NewFakeOIDCClient()
	logger := &mocks.RecordingLogger{}
	svc := NewAuthService(AuthServiceOptions{
		Client:   client,
		Settings: settings,
		Claims:   mapper,
		Logger:   logger,
		Config: AuthServiceConfig{
			RedirectURI:   "http://localhost:8090/auth/callback",
			PostLogoutURI: "http://localhost:8090",
			RefreshFactor: 0.75,
		},
	})
	t.Cleanup(svc.Close)
	return svc, client, logger
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{}) })
}

func TestAuthService_DisabledOperationsOnlyWarn(t *testing.T) {
	svc, client, logger := newTestAuthService(t, staticSettings{Enabled: false})
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx))
	require.NoError(t, svc.Login(ctx, "/jobs"))
	require.NoError(t, svc.Logout(ctx))
	_, ok := svc.Refresh(ctx)
	assert.False(t, ok)

	assert.Empty(t, client.Calls(), "no client calls when auth is disabled")
	warnings := logger.ByLevel("warning")
	require.Len(t, warnings, 4)
	for _, w := range warnings {
		assert.Equal(t, "Authentication and Authorization is disabled", w.Message)
		assert.Equal(t, "Auth Service", w.Origin)
	}
	assert.Len(t, logger.Records(), 4)

	st := svc.Snapshot()
	assert.True(t, st.IsDoneLoading)
	assert.False(t, st.IsAuthenticated)
	assert.False(t, svc.CanActivateProtectedRoute())

	_, err := svc.CompleteLogin(ctx, &url.URL{})
	assert.True(t, apperrors.IsDisabled(err))
}

func TestAuthService_ConfigureAndLogin_StartsInteractiveLoginWithoutToken(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	client.DiscoveryEvents = []domainauth.Event{{Type: domainauth.EventDiscoveryLoaded}}

	require.NoError(t, svc.ConfigureAndLogin(context.Background()))

	assert.Equal(t, []string{
		"OnEvent",
		"Configure",
		"SetupAutomaticSilentRefresh",
		"LoadDiscoveryDocumentAndTryLogin",
		"InitLoginFlow",
	}, client.Calls())
	assert.Equal(t, []string{"/"}, client.LoginTargets)

	cfg := client.Configured
	assert.Equal(t, enabledSettings.Issuer, cfg.Issuer)
	assert.Equal(t, "mmk-ui", cfg.ClientID)
	assert.Equal(t, "code", cfg.ResponseType)
	assert.Equal(t, "openid profile", cfg.Scope)
	assert.Equal(t, "http://localhost:8090/auth/callback", cfg.RedirectURI)
	assert.Equal(t, "http://localhost:8090", cfg.PostLogoutRedirectURI)
	assert.True(t, cfg.SkipSignatureCheck)
	assert.InDelta(t, 0.75, cfg.RefreshFactor, 1e-9)

	st := svc.Snapshot()
	assert.True(t, st.IsDoneLoading)
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, domainauth.PhaseLoggedOut, st.Phase)
}

func TestAuthService_ConfigureAndLogin_RestoresSession(t *testing.T) {
	settings := enabledSettings
	settings.PostLogoutURI = "https://shell.example.com/bye"
	svc, client, _ := newTestAuthService(t, settings)
	client.SetValid(true)
	client.SetClaims(keycloakClaims)

	require.NoError(t, svc.ConfigureAndLogin(context.Background()))

	assert.Zero(t, client.CallCount("InitLoginFlow"))
	assert.Equal(t, "https://shell.example.com/bye", client.Configured.PostLogoutRedirectURI)

	st := svc.Snapshot()
	assert.True(t, st.CanActivateProtectedRoute())
	assert.Equal(t, domainauth.PhaseLoggedIn, st.Phase)
	assert.Equal(t, "Ada Lovelace", st.Identity.CommonName)
	assert.Equal(t, "ada", st.Identity.Username)
	assert.Equal(t, "admins, users", st.Identity.RolesDisplay())
	assert.True(t, svc.HasRole("ADMINS"))
	assert.False(t, svc.HasRole("auditors"))
}

func TestAuthService_ConfigureAndLogin_IsIdempotent(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	client.SetValid(true)

	require.NoError(t, svc.ConfigureAndLogin(context.Background()))
	require.NoError(t, svc.ConfigureAndLogin(context.Background()))
	require.NoError(t, svc.Bootstrap(context.Background()))

	assert.Equal(t, 1, client.CallCount("Configure"))
	assert.Equal(t, 1, client.CallCount("OnEvent"))
	assert.Equal(t, 1, client.HandlerCount())
}

func TestAuthService_DiscoveryFailureIsLoggedNotReturned(t *testing.T) {
	svc, client, logger := newTestAuthService(t, enabledSettings)
	reason := apperrors.AuthProtocolf("issuer unreachable")
	client.DiscoveryErr = reason
	client.DiscoveryEvents = []domainauth.Event{{Type: domainauth.EventDiscoveryLoadError, Reason: reason}}

	require.NoError(t, svc.Bootstrap(context.Background()))

	assert.Zero(t, client.CallCount("InitLoginFlow"))
	errs := logger.ByLevel("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "OAuthErrorEvent: issuer unreachable", errs[0].Message)

	st := svc.Snapshot()
	assert.True(t, st.IsDoneLoading)
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, domainauth.PhaseLoggedOut, st.Phase)
}

func TestAuthService_ConfigureFailure(t *testing.T) {
	svc, client, logger := newTestAuthService(t, enabledSettings)
	client.ConfigureErr = apperrors.Validation("issuer is required")

	require.NoError(t, svc.ConfigureAndLogin(context.Background()))
	assert.Zero(t, client.CallCount("LoadDiscoveryDocumentAndTryLogin"))
	assert.Len(t, logger.ByLevel("error"), 1)
	st := svc.Snapshot()
	assert.True(t, st.IsDoneLoading)
	assert.Equal(t, domainauth.PhaseNotConfigured, st.Phase)
}

func TestAuthService_MirrorsTokenValidityOnEveryEvent(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	client.SetValid(true)
	client.SetClaims(keycloakClaims)
	require.NoError(t, svc.ConfigureAndLogin(context.Background()))
	require.True(t, svc.Snapshot().IsAuthenticated)

	// Expiry detected by the client shows on the next event of any type.
	client.SetValid(false)
	client.Emit(domainauth.Event{Type: domainauth.EventTokenExpires})
	st := svc.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, domainauth.PhaseLoggedOut, st.Phase)
	assert.True(t, st.IsDoneLoading, "isDoneLoading never reverts")

	client.SetValid(true)
	client.SetClaims(map[string]any{"name": "Grace", "preferred_username": "grace"})
	client.Emit(domainauth.Event{Type: domainauth.EventTokenReceived})
	st = svc.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "grace", st.Identity.Username)
	assert.Empty(t, st.Identity.Roles)
}

func TestAuthService_SessionEventsAreLoggedWithoutLogout(t *testing.T) {
	svc, client, logger := newTestAuthService(t, enabledSettings)
	client.SetValid(true)
	require.NoError(t, svc.ConfigureAndLogin(context.Background()))

	client.SetValid(false)
	client.Emit(domainauth.Event{Type: domainauth.EventSessionTerminated, Reason: errors.New("invalid_grant")})

	var messages []string
	for _, r := range logger.ByLevel("error") {
		messages = append(messages, r.Message)
	}
	assert.Equal(t, []string{"OAuthErrorEvent: invalid_grant", "OAuthError: Session Error"}, messages)
	assert.Zero(t, client.CallCount("LogOut"))
	assert.False(t, svc.Snapshot().IsAuthenticated)
}

func TestAuthService_LogoutEventClearsIdentity(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	client.SetValid(true)
	client.SetClaims(keycloakClaims)
	require.NoError(t, svc.ConfigureAndLogin(context.Background()))

	client.SetValid(false)
	client.Emit(domainauth.Event{Type: domainauth.EventLogout})
	st := svc.Snapshot()
	assert.Empty(t, st.Identity.Username)
	assert.False(t, st.CanActivateProtectedRoute())
}

func TestAuthService_Login(t *testing.T) {
	svc, client, logger := newTestAuthService(t, enabledSettings)
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, ""))
	require.NoError(t, svc.Login(ctx, "/jobs/42"))
	assert.Equal(t, []string{"/", "/jobs/42"}, client.LoginTargets)

	client.InitLoginErr = errors.New("discovery document not loaded")
	require.Error(t, svc.Login(ctx, "/x"))
	assert.Len(t, logger.ByLevel("error"), 1)
}

func TestAuthService_Logout(t *testing.T) {
	svc, client, logger := newTestAuthService(t, enabledSettings)
	require.NoError(t, svc.Logout(context.Background()))
	assert.Equal(t, 1, client.CallCount("LogOut"))

	client.LogOutErr = errors.New("remove access_token: redis down")
	require.Error(t, svc.Logout(context.Background()))
	assert.Len(t, logger.ByLevel("error"), 1)
}

func TestAuthService_Refresh(t *testing.T) {
	svc, client, logger := newTestAuthService(t, enabledSettings)
	info := domainauth.TokenInfo{TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour), HasRefreshToken: true}
	client.RefreshInfo = info
	client.SetValid(true)

	got, ok := svc.Refresh(context.Background())
	require.True(t, ok)
	assert.Equal(t, info, got)
	verbose := logger.ByLevel("verbose")
	require.Len(t, verbose, 1)
	assert.Equal(t, "Auth Service Token Refreshed", verbose[0].Message)
	assert.Equal(t, []any{info}, verbose[0].Params)
	assert.True(t, svc.Snapshot().IsAuthenticated)

	refreshErr := apperrors.New(apperrors.ErrCodeRefresh, "no refresh token stored")
	client.RefreshErr = refreshErr
	_, ok = svc.Refresh(context.Background())
	assert.False(t, ok)
	errs := logger.ByLevel("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "Auth Service Token Refresh Error", errs[0].Message)
	assert.Equal(t, []any{error(refreshErr)}, errs[0].Params)
	assert.Zero(t, client.CallCount("LogOut"), "refresh failure does not force logout")
}

func TestAuthService_AutomaticRefreshShowsRefreshingPhase(t *testing.T) {
	tests := []struct {
		name    string
		outcome domainauth.EventType
	}{
		{name: "refreshed", outcome: domainauth.EventTokenRefreshed},
		{name: "silent refresh error", outcome: domainauth.EventSilentRefreshError},
		{name: "session terminated", outcome: domainauth.EventSessionTerminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, _ := newTestAuthService(t, enabledSettings)
			client.SetValid(true)
			require.NoError(t, svc.ConfigureAndLogin(context.Background()))
			require.Equal(t, domainauth.PhaseLoggedIn, svc.Snapshot().Phase)

			client.Emit(domainauth.Event{Type: domainauth.EventTokenExpires})
			assert.Equal(t, domainauth.PhaseRefreshing, svc.Snapshot().Phase)

			if tt.outcome == domainauth.EventSessionTerminated {
				client.SetValid(false)
			}
			client.Emit(domainauth.Event{Type: tt.outcome})
			st := svc.Snapshot()
			assert.NotEqual(t, domainauth.PhaseRefreshing, st.Phase)
			assert.Equal(t, st.IsAuthenticated, st.Phase == domainauth.PhaseLoggedIn)
		})
	}
}

func TestAuthService_RefreshCoalescesOverlappingCalls(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	gate := make(chan struct{})
	client.RefreshGate = gate
	client.RefreshInfo = domainauth.TokenInfo{TokenType: "Bearer"}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[0] = svc.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return client.CallCount("SilentRefresh") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domainauth.PhaseRefreshing, svc.Snapshot().Phase)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[1] = svc.Refresh(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, client.CallCount("SilentRefresh"))
	assert.Equal(t, []bool{true, true}, results)
	assert.NotEqual(t, domainauth.PhaseRefreshing, svc.Snapshot().Phase)
}

func TestAuthService_CompleteLogin(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "relative path", target: "/jobs/42?tab=events", want: "/jobs/42?tab=events"},
		{name: "empty", target: "", want: "/"},
		{name: "absolute url", target: "https://evil.example.com/", want: "/"},
		{name: "protocol relative", target: "//evil.example.com", want: "/"},
		{name: "backslash", target: "/\\evil.example.com", want: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, _ := newTestAuthService(t, enabledSettings)
			client.TryLoginTarget = tt.target

			cb, err := url.Parse("http://localhost:8090/auth/callback?code=c&state=n")
			require.NoError(t, err)
			got, err := svc.CompleteLogin(context.Background(), cb)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthService_CompleteLoginError(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	client.TryLoginErr = apperrors.AuthProtocolf("invalid nonce in state")

	_, err := svc.CompleteLogin(context.Background(), &url.URL{RawQuery: "code=c&state=x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthProtocol(err))

	_, err = svc.CompleteLogin(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthService_SubscribeReceivesSnapshotThenChanges(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	client.SetValid(true)

	states, cancel := svc.Subscribe(16)
	defer cancel()
	first := <-states
	assert.Equal(t, domainauth.PhaseNotConfigured, first.Phase)

	require.NoError(t, svc.ConfigureAndLogin(context.Background()))

	var last domainauth.SessionState
	for {
		select {
		case st := <-states:
			last = st
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	assert.True(t, last.CanActivateProtectedRoute())
}

func TestAuthService_CloseReleasesClient(t *testing.T) {
	svc, client, _ := newTestAuthService(t, enabledSettings)
	require.NoError(t, svc.ConfigureAndLogin(context.Background()))
	states, _ := svc.Subscribe(1)
	<-states

	svc.Close()
	assert.True(t, client.Closed)
	assert.Zero(t, client.HandlerCount())
	_, open := <-states
	assert.False(t, open)
}

func TestAuthService_Accessors(t *testing.T) {
	svc, _, _ := newTestAuthService(t, enabledSettings)
	assert.True(t, svc.Enabled())
	assert.Equal(t, enabledSettings.Issuer, svc.Issuer())
	assert.True(t, svc.AllowsURL("https://API.example.com/v1/jobs"))
	assert.False(t, svc.AllowsURL("https://api.example.com/v1/jobs/1"))
}
