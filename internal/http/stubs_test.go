package httpx

import (
	"context"
	"net/url"
	"sync"

	"github.com/target/mmk-ui-shell/internal/domain/appconfig"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

// stubSession is a test double for SessionService and APIAuth.
type stubSession struct {
	mu sync.Mutex

	enabled bool
	state   domainauth.SessionState
	allowed []string
	issuer  string

	loginErr       error
	completeTarget string
	completeErr    error
	logoutErr      error
	refreshInfo    domainauth.TokenInfo
	refreshOK      bool

	logins    []string
	callbacks []*url.URL
	logouts   int
	states    chan domainauth.SessionState
}

func newStubSession() *stubSession {
	return &stubSession{enabled: true, states: make(chan domainauth.SessionState, 8)}
}

func (s *stubSession) Snapshot() domainauth.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubSession) Subscribe(_ int) (<-chan domainauth.SessionState, func()) {
	return s.states, func() {}
}

func (s *stubSession) CanActivateProtectedRoute() bool {
	return s.Snapshot().CanActivateProtectedRoute()
}

func (s *stubSession) Enabled() bool  { return s.enabled }
func (s *stubSession) Issuer() string { return s.issuer }

func (s *stubSession) AllowsURL(rawURL string) bool {
	return appconfig.AuthSettings{AllowedURLs: s.allowed}.AllowsURL(rawURL)
}

func (s *stubSession) Login(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins = append(s.logins, target)
	return s.loginErr
}

func (s *stubSession) CompleteLogin(_ context.Context, callback *url.URL) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
	return s.completeTarget, s.completeErr
}

func (s *stubSession) Logout(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts++
	return s.logoutErr
}

func (s *stubSession) Refresh(_ context.Context) (domainauth.TokenInfo, bool) {
	return s.refreshInfo, s.refreshOK
}

func (s *stubSession) logoutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// stubApp is a test double for AppInfoService.
type stubApp struct {
	loaded  bool
	name    string
	version string
	apiURL  string
}

func (a *stubApp) Loaded() bool       { return a.loaded }
func (a *stubApp) AppName() string    { return a.name }
func (a *stubApp) AppVersion() string { return a.version }
func (a *stubApp) APIURL() string     { return a.apiURL }

// stubLogs is a test double for LogService.
type stubLogs struct {
	mu      sync.Mutex
	entries []logging.Entry
	level   logging.Level
	size    int
	stream  chan logging.Entry
}

func (l *stubLogs) Entries() []logging.Entry { return l.entries }
func (l *stubLogs) Level() logging.Level     { return l.level }

func (l *stubLogs) CacheSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

func (l *stubLogs) SetCacheSize(size int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.size = size
}

func (l *stubLogs) Subscribe(_ int) (<-chan logging.Entry, func()) {
	return l.stream, func() {}
}
