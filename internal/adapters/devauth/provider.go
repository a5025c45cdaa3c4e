package devauth

// Package devauth provides a config-driven OIDC client for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"github.com/target/mmk-ui-shell/internal/ports"
)

var _ ports.OIDCClient = (*Client)(nil)

// Config controls the dev client behavior.
// Username is required. Roles and CommonName may be empty.
type Config struct {
	Username   string
	CommonName string
	Roles      []string
	TokenTTL   time.Duration // default 1h when zero
	Storage    ports.Storage
	Navigator  ports.Navigator
	Now        func() time.Time
}

// Client implements ports.OIDCClient for local development.
// It short-circuits the authorization endpoint by navigating straight back to
// the redirect URI with a locally generated code, and mints tokens itself.
type Client struct {
	username   string
	commonName string
	roles      []string
	ttl        time.Duration
	storage    ports.Storage
	navigator  ports.Navigator
	now        func() time.Time
	signingKey []byte

	mu       sync.Mutex
	cfg      domainauth.ClientConfig
	ready    bool
	handlers []handlerEntry
	nextID   int
	issued   int
}

type handlerEntry struct {
	id int
	h  ports.EventHandler
}

// NewClient constructs a dev client from Config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Username == "" {
		return nil, errors.New("dev auth: Username is required")
	}
	if cfg.Storage == nil {
		return nil, errors.New("dev auth: Storage is required")
	}
	if cfg.Navigator == nil {
		return nil, errors.New("dev auth: Navigator is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("dev auth: generate signing key: %w", err)
	}
	return &Client{
		username:   cfg.Username,
		commonName: cfg.CommonName,
		roles:      append([]string(nil), cfg.Roles...),
		ttl:        ttl,
		storage:    cfg.Storage,
		navigator:  cfg.Navigator,
		now:        now,
		signingKey: key,
	}, nil
}

func (c *Client) Configure(cfg domainauth.ClientConfig) error {
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		return apperrors.Validation("redirect URI is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.ready = false
	return nil
}

func (c *Client) OnEvent(h ports.EventHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
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

func (c *Client) emit(ev domainauth.Event) {
	c.mu.Lock()
	handlers := make([]ports.EventHandler, 0, len(c.handlers))
	for _, e := range c.handlers {
		handlers = append(handlers, e.h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// SetupAutomaticSilentRefresh is a no-op: dev tokens are refreshed on demand only.
func (c *Client) SetupAutomaticSilentRefresh() {}

// LoadDiscoveryDocumentAndTryLogin performs no I/O; there is no provider to discover.
func (c *Client) LoadDiscoveryDocumentAndTryLogin(_ context.Context) error {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	c.emit(domainauth.Event{Type: domainauth.EventDiscoveryLoaded})
	return nil
}

// TryLogin accepts the callback produced by InitLoginFlow.
func (c *Client) TryLogin(ctx context.Context, callback *url.URL) (string, error) {
	if callback == nil {
		return "", apperrors.Validation("callback URL is required")
	}
	q := callback.Query()
	if q.Get("code") == "" {
		err := apperrors.AuthProtocolf("authorization code is missing")
		c.emit(domainauth.Event{Type: domainauth.EventCodeError, Reason: err})
		return "", err
	}
	nonce, target, _ := strings.Cut(q.Get("state"), ";")
	stored, _ := c.storage.GetItem(domainauth.KeyNonce)
	if stored == "" || stored != nonce {
		err := apperrors.AuthProtocolf("invalid nonce in state")
		c.emit(domainauth.Event{Type: domainauth.EventInvalidNonceInState, Reason: err})
		return "", err
	}
	if err := c.storage.RemoveItem(ctx, domainauth.KeyNonce); err != nil {
		return "", fmt.Errorf("clear nonce: %w", err)
	}

	info, err := c.issue(ctx, true)
	if err != nil {
		c.emit(domainauth.Event{Type: domainauth.EventTokenError, Reason: err})
		return "", err
	}
	c.emit(domainauth.Event{Type: domainauth.EventTokenReceived, Info: info})
	return target, nil
}

func (c *Client) HasValidAccessToken() bool {
	tok, _ := c.storage.GetItem(domainauth.KeyAccessToken)
	if tok == "" {
		return false
	}
	raw, _ := c.storage.GetItem(domainauth.KeyExpiresAt)
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return c.now().Before(time.UnixMilli(ms))
}

func (c *Client) AccessToken() string {
	tok, _ := c.storage.GetItem(domainauth.KeyAccessToken)
	return tok
}

func (c *Client) IdentityClaims() map[string]any {
	raw, ok := c.storage.GetItem(domainauth.KeyIDTokenClaims)
	if !ok {
		return nil
	}
	var claims map[string]any
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		return nil
	}
	return claims
}

// InitLoginFlow navigates directly to the redirect URI with a dev code.
func (c *Client) InitLoginFlow(ctx context.Context, target string) error {
	c.mu.Lock()
	redirect, ready := c.cfg.RedirectURI, c.ready
	c.mu.Unlock()
	if !ready {
		return apperrors.AuthProtocolf("discovery document not loaded")
	}

	nonce, err := randomString(24)
	if err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	if err := c.storage.SetItem(ctx, domainauth.KeyNonce, nonce); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	state := nonce
	if target != "" {
		state += ";" + target
	}

	u, err := url.Parse(redirect)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "parse redirect URI")
	}
	q := u.Query()
	q.Set("code", "dev")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return c.navigator.Navigate(ctx, u.String())
}

// LogOut clears stored tokens. There is no end-session endpoint to visit.
func (c *Client) LogOut(ctx context.Context) error {
	var errs []error
	for _, key := range domainauth.TokenKeys {
		if err := c.storage.RemoveItem(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	c.emit(domainauth.Event{Type: domainauth.EventLogout})
	return errors.Join(errs...)
}

// SilentRefresh reissues tokens when a dev session exists.
func (c *Client) SilentRefresh(ctx context.Context) (domainauth.TokenInfo, error) {
	if rt, _ := c.storage.GetItem(domainauth.KeyRefreshToken); rt == "" {
		err := apperrors.New(apperrors.ErrCodeRefresh, "no refresh token stored")
		c.emit(domainauth.Event{Type: domainauth.EventSilentRefreshError, Reason: err})
		return domainauth.TokenInfo{}, err
	}
	info, err := c.issue(ctx, false)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrCodeRefresh, "silent refresh")
		c.emit(domainauth.Event{Type: domainauth.EventTokenRefreshError, Reason: wrapped})
		return domainauth.TokenInfo{}, wrapped
	}
	c.emit(domainauth.Event{Type: domainauth.EventTokenRefreshed, Info: info})
	c.emit(domainauth.Event{Type: domainauth.EventTokenReceived, Info: info})
	return info, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = nil
}

// issue mints a signed access token and writes the session, access token last.
func (c *Client) issue(ctx context.Context, withIDToken bool) (domainauth.TokenInfo, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	c.mu.Lock()
	c.issued++
	n := c.issued
	clientID := c.cfg.ClientID
	scope := c.cfg.Scope
	c.mu.Unlock()

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": c.username,
		"aud": clientID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": strconv.Itoa(n),
	}).SignedString(c.signingKey)
	if err != nil {
		return domainauth.TokenInfo{}, fmt.Errorf("sign access token: %w", err)
	}

	items := [][2]string{
		{domainauth.KeyExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10)},
		{domainauth.KeyAccessTokenStoredAt, strconv.FormatInt(now.UnixMilli(), 10)},
		{domainauth.KeyRefreshToken, "dev-refresh-" + strconv.Itoa(n)},
	}
	if scope != "" {
		items = append(items, [2]string{domainauth.KeyGrantedScopes, scope})
	}
	if withIDToken {
		claims, err := json.Marshal(c.claims())
		if err != nil {
			return domainauth.TokenInfo{}, fmt.Errorf("marshal claims: %w", err)
		}
		items = append(items,
			[2]string{domainauth.KeyIDToken, "dev-id-token"},
			[2]string{domainauth.KeyIDTokenClaims, string(claims)},
		)
	}
	items = append(items, [2]string{domainauth.KeyAccessToken, access})

	for _, kv := range items {
		if err := c.storage.SetItem(ctx, kv[0], kv[1]); err != nil {
			return domainauth.TokenInfo{}, fmt.Errorf("store %s: %w", kv[0], err)
		}
	}
	return domainauth.TokenInfo{
		TokenType:       "Bearer",
		ExpiresAt:       expiresAt,
		Scope:           scope,
		HasRefreshToken: true,
		HasIDToken:      withIDToken,
	}, nil
}

// claims shapes the dev identity like a Keycloak ID token so default claim paths resolve.
func (c *Client) claims() map[string]any {
	roles := make([]any, 0, len(c.roles))
	for _, r := range c.roles {
		roles = append(roles, r)
	}
	return map[string]any{
		"sub":                c.username,
		"preferred_username": c.username,
		"name":               c.commonName,
		"realm_access":       map[string]any{"roles": roles},
	}
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least n base64 URL chars
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
