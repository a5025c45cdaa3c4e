package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "mmk-ui"

// testIdP is a minimal OIDC provider: discovery, code grant with PKCE and refresh grant.
type testIdP struct {
	server *httptest.Server

	mu             sync.Mutex
	codes          map[string]pendingCode
	tokenRequests  []url.Values
	refreshError   string
	omitEndSession bool
	expiresIn      int
	issued         int
	// refreshHeld, when set, blocks refresh grants until it is closed.
	// Each blocked grant is announced on refreshWaiting first.
	refreshHeld    chan struct{}
	refreshWaiting chan struct{}
}

type pendingCode struct {
	nonce     string
	challenge string
}

func newTestIdP(t *testing.T) *testIdP {
	t.Helper()
	idp := &testIdP{codes: make(map[string]pendingCode), expiresIn: 3600}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", idp.discovery)
	mux.HandleFunc("/token", idp.token)
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (p *testIdP) issuer() string { return p.server.URL }

func (p *testIdP) discovery(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	omit := p.omitEndSession
	p.mu.Unlock()

	doc := map[string]any{
		"issuer":                 p.issuer(),
		"authorization_endpoint": p.issuer() + "/authorize",
		"token_endpoint":         p.issuer() + "/token",
		"jwks_uri":               p.issuer() + "/jwks",
	}
	if !omit {
		doc["end_session_endpoint"] = p.issuer() + "/logout"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// issueCode registers an authorization code for an authorize request.
func (p *testIdP) issueCode(nonce, challenge string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	code := fmt.Sprintf("code-%d", p.issued)
	p.codes[code] = pendingCode{nonce: nonce, challenge: challenge}
	return code
}

func (p *testIdP) requests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.tokenRequests...)
}

func (p *testIdP) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, "invalid_request")
		return
	}
	p.mu.Lock()
	p.tokenRequests = append(p.tokenRequests, r.PostForm)
	refreshErr := p.refreshError
	expiresIn := p.expiresIn
	p.issued++
	n := p.issued
	p.mu.Unlock()

	if r.PostForm.Get("client_id") != testClientID {
		writeOAuthError(w, "invalid_client")
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.mu.Lock()
		pending, ok := p.codes[r.PostForm.Get("code")]
		delete(p.codes, r.PostForm.Get("code"))
		p.mu.Unlock()
		if !ok || s256(r.PostForm.Get("code_verifier")) != pending.challenge {
			writeOAuthError(w, "invalid_grant")
			return
		}
		p.writeTokens(w, n, expiresIn, pending.nonce, true)
	case "refresh_token":
		p.holdRefresh()
		p.mu.Lock()
		expiresIn = p.expiresIn
		p.mu.Unlock()
		if refreshErr != "" {
			writeOAuthError(w, refreshErr)
			return
		}
		p.writeTokens(w, n, expiresIn, "", false)
	default:
		writeOAuthError(w, "unsupported_grant_type")
	}
}

// holdRefreshes makes refresh grants wait until the returned func is called.
func (p *testIdP) holdRefreshes() (waiting <-chan struct{}, release func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshHeld = make(chan struct{})
	p.refreshWaiting = make(chan struct{}, 8)
	held := p.refreshHeld
	return p.refreshWaiting, func() { close(held) }
}

func (p *testIdP) holdRefresh() {
	p.mu.Lock()
	held, waiting := p.refreshHeld, p.refreshWaiting
	p.mu.Unlock()
	if held == nil {
		return
	}
	waiting <- struct{}{}
	<-held
}

func (p *testIdP) refreshGrants() int {
	n := 0
	for _, r := range p.requests() {
		if r.Get("grant_type") == "refresh_token" {
			n++
		}
	}
	return n
}

func (p *testIdP) writeTokens(w http.ResponseWriter, n, expiresIn int, nonce string, withIDToken bool) {
	body := map[string]any{
		"access_token":  fmt.Sprintf("access-%d", n),
		"token_type":    "Bearer",
		"refresh_token": fmt.Sprintf("refresh-%d", n),
		"scope":         "openid profile",
	}
	if expiresIn > 0 {
		body["expires_in"] = expiresIn
	}
	if withIDToken {
		body["id_token"] = p.idToken(nonce)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (p *testIdP) idToken(nonce string) string {
	claims := jwt.MapClaims{
		"iss":                p.issuer(),
		"aud":                testClientID,
		"sub":                "user-1",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"iat":                time.Now().Unix(),
		"name":               "Ada Lovelace",
		"preferred_username": "ada",
		"realm_access":       map[string]any{"roles": []string{"admins"}},
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	// Signature is not checked: clients run with SkipSignatureCheck.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return signed
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
