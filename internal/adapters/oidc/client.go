package oidc

// Package oidc provides the OAuth2 Authorization Code + PKCE client used by the shell.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"github.com/target/mmk-ui-shell/internal/ports"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var _ ports.OIDCClient = (*Client)(nil)

// stateSeparator splits the nonce from the preserved target inside the state parameter.
const stateSeparator = ";"

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	Storage    ports.Storage
	Navigator  ports.Navigator
	HTTPClient *http.Client     // Optional, defaults to a client with a 30s timeout
	Logger     *slog.Logger     // Optional, receives debug output when ShowDebugInformation is set
	Now        func() time.Time // Optional, defaults to time.Now
}

type handlerEntry struct {
	id int
	h  ports.EventHandler
}

// Client implements ports.OIDCClient using go-oidc for discovery and ID token checks
// and x/oauth2 for the code and refresh grants.
type Client struct {
	storage    ports.Storage
	navigator  ports.Navigator
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.Mutex
	cfg           domainauth.ClientConfig
	configured    bool
	oauth         *oauth2.Config
	verifier      *gooidc.IDTokenVerifier
	endSessionURL string
	handlers      []handlerEntry
	nextHandlerID int
	autoRefresh   bool
	refreshTimer  *time.Timer
	closed        bool
	// generation changes whenever the stored session is replaced or ended.
	generation uint64

	// tokensMu serialises writes and removals of the stored token set.
	tokensMu sync.Mutex
	refresh  singleflight.Group
}

// NewClient constructs an unconfigured client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		storage:    opts.Storage,
		navigator:  opts.Navigator,
		httpClient: httpClient,
		logger:     logger.With("component", "oidc_client"),
		now:        now,
	}, nil
}

// Configure validates and stores cfg. Discovery happens in LoadDiscoveryDocumentAndTryLogin.
func (c *Client) Configure(cfg domainauth.ClientConfig) error {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return apperrors.Validation("issuer is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return apperrors.Validation("client ID is required")
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		return apperrors.Validation("redirect URI is required")
	}
	if cfg.ResponseType == "" {
		cfg.ResponseType = "code"
	}
	if cfg.ResponseType != "code" {
		return apperrors.Validation("only the code response type is supported")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.configured = true
	c.oauth = nil
	c.verifier = nil
	c.endSessionURL = ""
	return nil
}

// OnEvent registers h. Handlers run synchronously in registration order.
func (c *Client) OnEvent(h ports.EventHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandlerID
	c.nextHandlerID++
	c.handlers = append(c.handlers, handlerEntry{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, e := range c.handlers {
				if e.id == id {
					c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// emit must be called without c.mu held.
func (c *Client) emit(ev domainauth.Event) {
	c.mu.Lock()
	handlers := make([]ports.EventHandler, 0, len(c.handlers))
	for _, e := range c.handlers {
		handlers = append(handlers, e.h)
	}
	debug := c.cfg.ShowDebugInformation
	c.mu.Unlock()

	if debug {
		c.logger.Debug("oidc event", "type", string(ev.Type), "error", ev.Reason)
	}
	for _, h := range handlers {
		h(ev)
	}
}

// LoadDiscoveryDocumentAndTryLogin fetches provider metadata and restores any stored session.
func (c *Client) LoadDiscoveryDocumentAndTryLogin(ctx context.Context) error {
	c.mu.Lock()
	cfg, configured := c.cfg, c.configured
	c.mu.Unlock()
	if !configured {
		return apperrors.AuthProtocolf("client is not configured")
	}

	ctx = gooidc.ClientContext(ctx, c.httpClient)
	provider, err := gooidc.NewProvider(ctx, strings.TrimSuffix(cfg.Issuer, "/"))
	if err != nil {
		err = apperrors.Wrap(err, apperrors.ErrCodeAuthProtocol, "load discovery document")
		c.emit(domainauth.Event{Type: domainauth.EventDiscoveryLoadError, Reason: err})
		return err
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if claimsErr := provider.Claims(&extra); claimsErr != nil {
		c.logger.Warn("decode discovery metadata", "error", claimsErr)
	}

	// Public client: the client ID travels in the form body, no secret.
	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c.mu.Lock()
	c.oauth = &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Scopes:      cfg.Scopes(),
		Endpoint:    endpoint,
	}
	c.verifier = provider.Verifier(&gooidc.Config{
		ClientID:                   cfg.ClientID,
		InsecureSkipSignatureCheck: cfg.SkipSignatureCheck,
		Now:                        c.now,
	})
	c.endSessionURL = extra.EndSessionEndpoint
	c.mu.Unlock()

	c.emit(domainauth.Event{Type: domainauth.EventDiscoveryLoaded})

	if c.HasValidAccessToken() {
		c.scheduleRefresh()
	}
	return nil
}

// TryLogin completes the authorization response in callback and returns the preserved target.
func (c *Client) TryLogin(ctx context.Context, callback *url.URL) (string, error) {
	oauthCfg, verifier := c.protocol()
	if oauthCfg == nil {
		return "", apperrors.AuthProtocolf("discovery document not loaded")
	}
	if callback == nil {
		return "", apperrors.Validation("callback URL is required")
	}

	q := callback.Query()
	if code := q.Get("error"); code != "" {
		err := apperrors.AuthProtocolf("authorization failed: %s", strings.TrimSpace(code+" "+q.Get("error_description")))
		c.emit(domainauth.Event{Type: domainauth.EventCodeError, Reason: err})
		return "", err
	}
	code := q.Get("code")
	if code == "" {
		err := apperrors.AuthProtocolf("authorization code is missing")
		c.emit(domainauth.Event{Type: domainauth.EventCodeError, Reason: err})
		return "", err
	}

	nonce, target := splitState(q.Get("state"))
	storedNonce, _ := c.storage.GetItem(domainauth.KeyNonce)
	if storedNonce == "" || nonce != storedNonce {
		err := apperrors.AuthProtocolf("invalid nonce in state")
		c.emit(domainauth.Event{Type: domainauth.EventInvalidNonceInState, Reason: err})
		return "", err
	}
	pkceVerifier, _ := c.storage.GetItem(domainauth.KeyPKCEVerifier)
	if pkceVerifier == "" {
		err := apperrors.AuthProtocolf("PKCE verifier is missing")
		c.emit(domainauth.Event{Type: domainauth.EventCodeError, Reason: err})
		return "", err
	}

	ctx = gooidc.ClientContext(ctx, c.httpClient)
	tok, err := oauthCfg.Exchange(ctx, code, oauth2.VerifierOption(pkceVerifier))
	if err != nil {
		err = apperrors.Wrap(err, apperrors.ErrCodeAuthProtocol, "exchange authorization code")
		c.emit(domainauth.Event{Type: domainauth.EventTokenError, Reason: err})
		return "", err
	}

	rawID, claims, err := c.verifyIDToken(ctx, verifier, tok)
	if err != nil {
		c.emit(domainauth.Event{Type: domainauth.EventTokenError, Reason: err})
		return "", err
	}
	if rawID != "" {
		if got, _ := claims["nonce"].(string); got != nonce {
			err = apperrors.AuthProtocolf("id_token nonce does not match")
			c.emit(domainauth.Event{Type: domainauth.EventInvalidNonceInState, Reason: err})
			return "", err
		}
	}

	c.tokensMu.Lock()
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	err = c.storeTokens(ctx, tok, rawID, claims)
	c.tokensMu.Unlock()
	if err != nil {
		return "", err
	}
	c.clearFlowState(ctx)

	c.emit(domainauth.Event{Type: domainauth.EventTokenReceived, Info: tokenInfo(tok, c.expiryOf(tok))})
	c.scheduleRefresh()
	return target, nil
}

// InitLoginFlow starts an interactive login and navigates to the authorization endpoint.
func (c *Client) InitLoginFlow(ctx context.Context, target string) error {
	oauthCfg, _ := c.protocol()
	if oauthCfg == nil {
		return apperrors.AuthProtocolf("discovery document not loaded")
	}

	nonce, err := generateRandomString(32)
	if err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	pkceVerifier := oauth2.GenerateVerifier()

	if err := c.storage.SetItem(ctx, domainauth.KeyNonce, nonce); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	if err := c.storage.SetItem(ctx, domainauth.KeyPKCEVerifier, pkceVerifier); err != nil {
		return fmt.Errorf("store PKCE verifier: %w", err)
	}

	state := nonce
	if target != "" {
		state += stateSeparator + target
	}

	c.mu.Lock()
	resource := c.cfg.Resource
	c.mu.Unlock()

	opts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(pkceVerifier),
		gooidc.Nonce(nonce),
	}
	if resource != "" {
		opts = append(opts, oauth2.SetAuthURLParam("resource", resource))
	}

	authURL := oauthCfg.AuthCodeURL(state, opts...)
	if err := c.navigator.Navigate(ctx, authURL); err != nil {
		return fmt.Errorf("navigate to authorization endpoint: %w", err)
	}
	return nil
}

// LogOut removes every stored token and navigates to the end-session endpoint when advertised.
func (c *Client) LogOut(ctx context.Context) error {
	c.tokensMu.Lock()
	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	c.stopRefreshTimer()

	idToken, _ := c.storage.GetItem(domainauth.KeyIDToken)

	var errs []error
	for _, key := range domainauth.TokenKeys {
		if err := c.storage.RemoveItem(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	c.tokensMu.Unlock()

	c.emit(domainauth.Event{Type: domainauth.EventLogout})

	if endSession := c.endSessionTarget(idToken); endSession != "" {
		if err := c.navigator.Navigate(ctx, endSession); err != nil {
			errs = append(errs, fmt.Errorf("navigate to end session endpoint: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close stops the refresh timer and drops event handlers.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
	c.handlers = nil
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

func (c *Client) protocol() (*oauth2.Config, *gooidc.IDTokenVerifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oauth, c.verifier
}

func (c *Client) endSessionTarget(idToken string) string {
	c.mu.Lock()
	endSession := c.endSessionURL
	cfg := c.cfg
	c.mu.Unlock()

	if endSession == "" {
		return ""
	}
	u, err := url.Parse(endSession)
	if err != nil {
		c.logger.Warn("invalid end_session_endpoint", "error", err)
		return ""
	}
	q := u.Query()
	if idToken != "" {
		q.Set("id_token_hint", idToken)
	}
	if cfg.PostLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", cfg.PostLogoutRedirectURI)
	}
	q.Set("client_id", cfg.ClientID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) clearFlowState(ctx context.Context) {
	for _, key := range []string{domainauth.KeyNonce, domainauth.KeyPKCEVerifier} {
		if err := c.storage.RemoveItem(ctx, key); err != nil {
			c.logger.Warn("clear login flow state", "key", key, "error", err)
		}
	}
}

func splitState(state string) (nonce, target string) {
	nonce, target, _ = strings.Cut(state, stateSeparator)
	return nonce, target
}
