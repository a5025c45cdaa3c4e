package oidc

import (
	"context"
	"errors"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"golang.org/x/oauth2"
)

const defaultRefreshFactor = 0.75

// SetupAutomaticSilentRefresh enables a timer that refreshes tokens at RefreshFactor of their lifetime.
func (c *Client) SetupAutomaticSilentRefresh() {
	c.mu.Lock()
	c.autoRefresh = true
	c.mu.Unlock()

	if c.HasValidAccessToken() {
		c.scheduleRefresh()
	}
}

// SilentRefresh exchanges the stored refresh token for new tokens. Overlapping calls,
// including the automatic timer, share one grant.
func (c *Client) SilentRefresh(ctx context.Context) (domainauth.TokenInfo, error) {
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		return c.silentRefresh(ctx)
	})
	info, _ := v.(domainauth.TokenInfo)
	return info, err
}

func (c *Client) silentRefresh(ctx context.Context) (domainauth.TokenInfo, error) {
	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	oauthCfg, verifier := c.protocol()
	if oauthCfg == nil {
		err := apperrors.New(apperrors.ErrCodeRefresh, "discovery document not loaded")
		c.emit(domainauth.Event{Type: domainauth.EventSilentRefreshError, Reason: err})
		return domainauth.TokenInfo{}, err
	}

	refreshToken, _ := c.storage.GetItem(domainauth.KeyRefreshToken)
	if refreshToken == "" {
		err := apperrors.New(apperrors.ErrCodeRefresh, "no refresh token stored")
		c.emit(domainauth.Event{Type: domainauth.EventSilentRefreshError, Reason: err})
		return domainauth.TokenInfo{}, err
	}

	ctx = gooidc.ClientContext(ctx, c.httpClient)
	tok, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrCodeRefresh, "silent refresh")
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			c.emit(domainauth.Event{Type: domainauth.EventSessionTerminated, Reason: wrapped})
		} else {
			c.emit(domainauth.Event{Type: domainauth.EventSilentRefreshError, Reason: wrapped})
		}
		return domainauth.TokenInfo{}, wrapped
	}

	rawID, claims, err := c.verifyIDToken(ctx, verifier, tok)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrCodeRefresh, "silent refresh")
		c.emit(domainauth.Event{Type: domainauth.EventTokenRefreshError, Reason: wrapped})
		return domainauth.TokenInfo{}, wrapped
	}
	stored, err := c.storeRefreshed(ctx, generation, tok, rawID, claims)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrCodeRefresh, "silent refresh")
		c.emit(domainauth.Event{Type: domainauth.EventTokenRefreshError, Reason: wrapped})
		return domainauth.TokenInfo{}, wrapped
	}
	if !stored {
		return domainauth.TokenInfo{}, apperrors.New(apperrors.ErrCodeRefresh, "session ended during silent refresh")
	}

	info := tokenInfo(tok, c.expiryOf(tok))
	c.emit(domainauth.Event{Type: domainauth.EventTokenRefreshed, Info: info})
	c.emit(domainauth.Event{Type: domainauth.EventTokenReceived, Info: info})
	c.scheduleRefresh()
	return info, nil
}

// storeRefreshed writes refreshed tokens unless the session they belong to was
// replaced, logged out or closed after the grant started.
func (c *Client) storeRefreshed(
	ctx context.Context,
	generation uint64,
	tok *oauth2.Token,
	rawID string,
	claims map[string]any,
) (bool, error) {
	c.tokensMu.Lock()
	defer c.tokensMu.Unlock()

	c.mu.Lock()
	current := c.generation == generation && !c.closed
	c.mu.Unlock()
	if !current {
		return false, nil
	}
	return true, c.storeTokens(ctx, tok, rawID, claims)
}

// scheduleRefresh arms the timer for the stored token when automatic refresh is on.
func (c *Client) scheduleRefresh() {
	expiresAt, okExp := c.storedTime(domainauth.KeyExpiresAt)
	storedAt, okStored := c.storedTime(domainauth.KeyAccessTokenStoredAt)
	if !okExp {
		return
	}
	if !okStored {
		storedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.autoRefresh || c.closed {
		return
	}
	factor := c.cfg.RefreshFactor
	if factor <= 0 || factor >= 1 {
		factor = defaultRefreshFactor
	}

	lifetime := expiresAt.Sub(storedAt)
	delay := time.Duration(float64(lifetime)*factor) - c.now().Sub(storedAt)
	if delay < 0 {
		delay = 0
	}

	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
	}
	timeout := c.httpClient.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.refreshTimer = time.AfterFunc(delay, func() {
		c.emit(domainauth.Event{Type: domainauth.EventTokenExpires, Info: domainauth.KeyAccessToken})
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		// Failures are reported through events.
		_, _ = c.SilentRefresh(ctx)
	})
}

func (c *Client) stopRefreshTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}
