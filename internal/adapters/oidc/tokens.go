package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"golang.org/x/oauth2"
)

// defaultTokenLifetime applies when neither expires_in nor a JWT exp claim is available.
const defaultTokenLifetime = time.Hour

// HasValidAccessToken reports whether an access token is stored and not yet expired.
func (c *Client) HasValidAccessToken() bool {
	if tok, _ := c.storage.GetItem(domainauth.KeyAccessToken); tok == "" {
		return false
	}
	expiresAt, ok := c.storedTime(domainauth.KeyExpiresAt)
	if !ok {
		return false
	}
	return c.now().Before(expiresAt)
}

// AccessToken returns the stored access token or "".
func (c *Client) AccessToken() string {
	tok, _ := c.storage.GetItem(domainauth.KeyAccessToken)
	return tok
}

// IdentityClaims returns the stored ID token claims, or nil.
func (c *Client) IdentityClaims() map[string]any {
	raw, ok := c.storage.GetItem(domainauth.KeyIDTokenClaims)
	if !ok || raw == "" {
		return nil
	}
	var claims map[string]any
	if err := json.Unmarshal([]byte(raw), &claims); err != nil {
		c.logger.Warn("decode stored id token claims", "error", err)
		return nil
	}
	return claims
}

// verifyIDToken checks the id_token in tok, if any, and returns it with its claims.
func (c *Client) verifyIDToken(ctx context.Context, verifier *gooidc.IDTokenVerifier, tok *oauth2.Token) (string, map[string]any, error) {
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		// Refresh responses may omit the id_token.
		return "", nil, nil //nolint:nilerr // absence is not an error here
	}
	if verifier == nil {
		return "", nil, apperrors.AuthProtocolf("id_token verifier not initialised")
	}
	idTok, err := verifier.Verify(ctx, rawID)
	if err != nil {
		return "", nil, apperrors.Wrap(err, apperrors.ErrCodeAuthProtocol, "verify id_token")
	}
	var claims map[string]any
	if err := idTok.Claims(&claims); err != nil {
		return "", nil, apperrors.Wrap(err, apperrors.ErrCodeAuthProtocol, "parse id_token claims")
	}
	return rawID, claims, nil
}

// storeTokens writes token metadata first and the access token last, so that the
// shared session flag is raised only once the session is complete.
func (c *Client) storeTokens(ctx context.Context, tok *oauth2.Token, rawID string, claims map[string]any) error {
	now := c.now()
	expiresAt := c.expiryOf(tok)

	items := [][2]string{
		{domainauth.KeyExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10)},
		{domainauth.KeyAccessTokenStoredAt, strconv.FormatInt(now.UnixMilli(), 10)},
	}
	if tok.RefreshToken != "" {
		items = append(items, [2]string{domainauth.KeyRefreshToken, tok.RefreshToken})
	}
	if scope, _ := tok.Extra("scope").(string); scope != "" {
		items = append(items, [2]string{domainauth.KeyGrantedScopes, scope})
	}
	if rawID != "" {
		data, err := json.Marshal(claims)
		if err != nil {
			return fmt.Errorf("marshal id token claims: %w", err)
		}
		items = append(items,
			[2]string{domainauth.KeyIDToken, rawID},
			[2]string{domainauth.KeyIDTokenClaims, string(data)},
		)
	}
	items = append(items, [2]string{domainauth.KeyAccessToken, tok.AccessToken})

	for _, kv := range items {
		if err := c.storage.SetItem(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("store %s: %w", kv[0], err)
		}
	}
	return nil
}

// expiryOf prefers the token response expiry, then the access token's exp claim.
func (c *Client) expiryOf(tok *oauth2.Token) time.Time {
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	if exp, ok := jwtExpiry(tok.AccessToken); ok {
		return exp
	}
	return c.now().Add(defaultTokenLifetime)
}

func (c *Client) storedTime(key string) (time.Time, bool) {
	raw, ok := c.storage.GetItem(key)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// jwtExpiry reads exp from a JWT access token without verifying it.
// Opaque tokens report false.
func jwtExpiry(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func tokenInfo(tok *oauth2.Token, expiresAt time.Time) domainauth.TokenInfo {
	scope, _ := tok.Extra("scope").(string)
	_, idErr := getIDTokenFromToken(tok)
	return domainauth.TokenInfo{
		TokenType:       tok.Type(),
		ExpiresAt:       expiresAt,
		Scope:           scope,
		HasRefreshToken: tok.RefreshToken != "",
		HasIDToken:      idErr == nil,
	}
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 3)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
