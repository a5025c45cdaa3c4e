package auth

// Package auth contains simple hand-written test doubles for the session ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"net/url"
	"sync"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.OIDCClient = (*FakeOIDCClient)(nil)
	_ ports.Navigator  = (*RecordingNavigator)(nil)
	_ ports.Reloader   = (*RecordingReloader)(nil)
	_ ports.Logger     = (*RecordingLogger)(nil)
	_ ports.Storage    = (*MapStorage)(nil)
)

// FakeOIDCClient records calls and returns configured results.
// Events queued in DiscoveryEvents are emitted during LoadDiscoveryDocumentAndTryLogin.
type FakeOIDCClient struct {
	mu sync.Mutex

	ConfigureErr   error
	DiscoveryErr   error
	TryLoginErr    error
	TryLoginTarget string
	InitLoginErr   error
	LogOutErr      error
	RefreshErr     error
	RefreshInfo    domainauth.TokenInfo

	// Valid is what HasValidAccessToken reports.
	Valid bool
	// Token is what AccessToken returns.
	Token string
	// Claims is what IdentityClaims returns.
	Claims map[string]any

	DiscoveryEvents []domainauth.Event

	// RefreshGate, when set, blocks SilentRefresh until it is closed.
	RefreshGate chan struct{}

	Configured   domainauth.ClientConfig
	LoginTargets []string
	AutoRefresh  bool
	Closed       bool

	calls    []string
	handlers map[int]ports.EventHandler
	order    []int
	nextID   int
}

// NewFakeOIDCClient returns a fake with no token.
func NewFakeOIDCClient() *FakeOIDCClient {
	return &FakeOIDCClient{handlers: make(map[int]ports.EventHandler)}
}

func (f *FakeOIDCClient) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

// Calls returns the recorded method names in order.
func (f *FakeOIDCClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times name was called.
func (f *FakeOIDCClient) CallCount(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// SetValid changes the token validity reported to callers.
func (f *FakeOIDCClient) SetValid(valid bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Valid = valid
}

// SetClaims replaces the identity claims.
func (f *FakeOIDCClient) SetClaims(claims map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Claims = claims
}

// Emit delivers ev to registered handlers in order.
func (f *FakeOIDCClient) Emit(ev domainauth.Event) {
	f.mu.Lock()
	handlers := make([]ports.EventHandler, 0, len(f.order))
	for _, id := range f.order {
		if h, ok := f.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// HandlerCount returns the number of registered handlers.
func (f *FakeOIDCClient) HandlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *FakeOIDCClient) Configure(cfg domainauth.ClientConfig) error {
	f.record("Configure")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configured = cfg
	return f.ConfigureErr
}

func (f *FakeOIDCClient) OnEvent(h ports.EventHandler) func() {
	f.record("OnEvent")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[int]ports.EventHandler)
	}
	id := f.nextID
	f.nextID++
	f.handlers[id] = h
	f.order = append(f.order, id)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *FakeOIDCClient) SetupAutomaticSilentRefresh() {
	f.record("SetupAutomaticSilentRefresh")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AutoRefresh = true
}

func (f *FakeOIDCClient) LoadDiscoveryDocumentAndTryLogin(_ context.Context) error {
	f.record("LoadDiscoveryDocumentAndTryLogin")
	f.mu.Lock()
	events := append([]domainauth.Event(nil), f.DiscoveryEvents...)
	err := f.DiscoveryErr
	f.mu.Unlock()
	for _, ev := range events {
		f.Emit(ev)
	}
	return err
}

func (f *FakeOIDCClient) TryLogin(_ context.Context, _ *url.URL) (string, error) {
	f.record("TryLogin")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TryLoginTarget, f.TryLoginErr
}

func (f *FakeOIDCClient) HasValidAccessToken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Valid
}

func (f *FakeOIDCClient) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Token
}

func (f *FakeOIDCClient) IdentityClaims() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Claims
}

func (f *FakeOIDCClient) InitLoginFlow(_ context.Context, target string) error {
	f.record("InitLoginFlow")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginTargets = append(f.LoginTargets, target)
	return f.InitLoginErr
}

func (f *FakeOIDCClient) LogOut(_ context.Context) error {
	f.record("LogOut")
	return f.LogOutErr
}

func (f *FakeOIDCClient) SilentRefresh(ctx context.Context) (domainauth.TokenInfo, error) {
	f.record("SilentRefresh")
	f.mu.Lock()
	gate := f.RefreshGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domainauth.TokenInfo{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RefreshInfo, f.RefreshErr
}

func (f *FakeOIDCClient) Close() {
	f.record("Close")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// RecordingNavigator records navigation targets.
type RecordingNavigator struct {
	mu   sync.Mutex
	urls []string
	Err  error
}

func (n *RecordingNavigator) Navigate(_ context.Context, target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, target)
	return n.Err
}

// URLs returns every navigated URL.
func (n *RecordingNavigator) URLs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// Last returns the most recent URL or "".
func (n *RecordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urls) == 0 {
		return ""
	}
	return n.urls[len(n.urls)-1]
}

// RecordingReloader records reload requests and exposes them on a channel.
type RecordingReloader struct {
	mu      sync.Mutex
	reasons []string
	ch      chan string
}

// NewRecordingReloader returns a reloader with a buffered notification channel.
func NewRecordingReloader() *RecordingReloader {
	return &RecordingReloader{ch: make(chan string, 16)}
}

func (r *RecordingReloader) Reload(reason string) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
	select {
	case r.ch <- reason:
	default:
	}
}

// Reloaded receives each reload reason.
func (r *RecordingReloader) Reloaded() <-chan string { return r.ch }

// Reasons returns every recorded reason.
func (r *RecordingReloader) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

// LogRecord is one call captured by RecordingLogger.
type LogRecord struct {
	Level   string
	Message string
	Origin  string
	Params  []any
}

// RecordingLogger captures log calls.
type RecordingLogger struct {
	mu      sync.Mutex
	records []LogRecord
}

func (l *RecordingLogger) add(level, message, origin string, params []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, LogRecord{Level: level, Message: message, Origin: origin, Params: params})
}

func (l *RecordingLogger) Error(message, origin string, params ...any) {
	l.add("error", message, origin, params)
}

func (l *RecordingLogger) Warning(message, origin string, params ...any) {
	l.add("warning", message, origin, params)
}

func (l *RecordingLogger) Info(message, origin string, params ...any) {
	l.add("info", message, origin, params)
}

func (l *RecordingLogger) Verbose(message, origin string, params ...any) {
	l.add("verbose", message, origin, params)
}

// Records returns every captured call.
func (l *RecordingLogger) Records() []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogRecord(nil), l.records...)
}

// ByLevel returns captured calls at level.
func (l *RecordingLogger) ByLevel(level string) []LogRecord {
	var out []LogRecord
	for _, r := range l.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// MapStorage is a ports.Storage backed by a map.
type MapStorage struct {
	mu     sync.Mutex
	items  map[string]string
	SetErr error
}

// NewMapStorage returns empty storage.
func NewMapStorage() *MapStorage {
	return &MapStorage{items: make(map[string]string)}
}

func (s *MapStorage) GetItem(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *MapStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.items[key] = value
	return nil
}

func (s *MapStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MapStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
