package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/adapters/memory"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	mocks "github.com/target/mmk-ui-shell/internal/mocks/auth"
)

const disabledDocument = `{
  // local document
  "logLevel": 3,
  "appName": "Merry Maker",
  "appVersion": "2.0.1",
  "apiUrl": "http://api.test",
  "authConfig": {"enabled": false},
}`

func newDocumentServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testAppConfig(configBaseURL string) *config.AppConfig {
	cfg := &config.AppConfig{
		IsDev: true,
		HTTP:  config.HTTPConfig{Addr: "127.0.0.1:0", BaseURL: "http://localhost:8090"},
		Shell: config.ShellConfig{ConfigBaseURL: configBaseURL},
		Logging: config.LoggingConfig{
			BufferSize: 50,
			Level:      "verbose",
		},
	}
	cfg.Sanitize()
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type runningShell struct {
	baseURL string
	cancel  context.CancelFunc
	errCh   chan error
}

func startRun(t *testing.T, rc RunConfig) *runningShell {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	rc.Listener = ln
	if rc.Logger == nil {
		rc.Logger = quietLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, rc) }()

	rs := &runningShell{baseURL: "http://" + ln.Addr().String(), cancel: cancel, errCh: errCh}
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Errorf("Run did not return after cancel")
		}
	})
	return rs
}

func (rs *runningShell) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(rs.baseURL + path) //nolint:noctx // test helper
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func (rs *runningShell) waitReady(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		status, _ := rs.get(t, "/readyz")
		return status == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRun_ServesReadyShell(t *testing.T) {
	docs, hits := newDocumentServer(t, disabledDocument)
	rs := startRun(t, RunConfig{Config: testAppConfig(docs.URL)})
	rs.waitReady(t)

	status, body := rs.get(t, "/api/app")
	require.Equal(t, http.StatusOK, status)
	var app map[string]any
	require.NoError(t, json.Unmarshal(body, &app))
	assert.Equal(t, "Merry Maker", app["app_name"])
	assert.Equal(t, "2.0.1", app["app_version"])
	assert.Equal(t, "http://api.test/v1", app["api_url"])

	status, body = rs.get(t, "/api/logs")
	require.Equal(t, http.StatusOK, status)
	var logs struct {
		Level int `json:"level"`
	}
	require.NoError(t, json.Unmarshal(body, &logs))
	assert.Equal(t, 3, logs.Level, "document level replaces LOG_LEVEL")

	assert.Equal(t, int32(1), hits.Load())

	rs.cancel()
	select {
	case err := <-rs.errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_ReloadsWhenSessionEndsElsewhere(t *testing.T) {
	docs, hits := newDocumentServer(t, disabledDocument)
	shared := memory.NewSharedSession()
	t.Cleanup(shared.Close)

	sink := &countingSink{}
	rs := startRun(t, RunConfig{Config: testAppConfig(docs.URL), Shared: shared, Metrics: sink})
	rs.waitReady(t)
	require.Equal(t, int32(1), hits.Load())

	require.NoError(t, shared.Publish(context.Background(), domainauth.SessionSignal{
		Type:   domainauth.SignalSessionEnded,
		Origin: "another-instance",
		At:     time.Now().UTC(),
	}))

	require.Eventually(t, func() bool { return hits.Load() == 2 }, 5*time.Second, 20*time.Millisecond)
	rs.waitReady(t)
	assert.Contains(t, sink.names(), "shell.reload")
	require.Eventually(t, func() bool {
		return countOf(sink.names(), "shell.startup") == 2
	}, 5*time.Second, 20*time.Millisecond)
}

type countingSink struct {
	mu    sync.Mutex
	count []string
}

func (s *countingSink) Count(name string, _ int64, _ map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = append(s.count, name)
}

func (s *countingSink) Gauge(string, float64, map[string]string)         {}
func (s *countingSink) Timing(string, time.Duration, map[string]string) {}

func (s *countingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.count)
}

func countOf(names []string, want string) int {
	n := 0
	for _, name := range names {
		if name == want {
			n++
		}
	}
	return n
}

func TestRun_ConfigFailureStopsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	rs := startRun(t, RunConfig{Config: testAppConfig(srv.URL)})
	select {
	case err := <-rs.errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load configuration")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not fail")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	require.Error(t, Run(context.Background(), RunConfig{}))
}

func TestReloadSignal_MergesPendingRequests(t *testing.T) {
	r := newReloadSignal()
	r.Reload("session_ended")
	r.Reload("second")

	assert.Equal(t, "session_ended", <-r.C())
	select {
	case reason := <-r.C():
		t.Fatalf("unexpected second reload %q", reason)
	default:
	}
}

func TestInstanceHandler(t *testing.T) {
	var h instanceHandler

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	for i, body := range []string{"first", "second"} {
		h.set(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = fmt.Fprint(w, body)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, body, rec.Body.String(), "generation %d", i+1)
	}
}

func TestBuildSharedSession(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		shared, closeFn, err := BuildSharedSession(SharedSessionConfig{Session: config.SessionConfig{Backend: config.SessionBackendMemory}})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memory.SharedSession{}, shared)
	})
	t.Run("redis without client", func(t *testing.T) {
		_, _, err := BuildSharedSession(SharedSessionConfig{Session: config.SessionConfig{Backend: config.SessionBackendRedis}})
		require.Error(t, err)
	})
	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := BuildSharedSession(SharedSessionConfig{Session: config.SessionConfig{Backend: "etcd"}})
		require.Error(t, err)
	})
}

func TestShell_StartLogsReadyAndCloses(t *testing.T) {
	docs, _ := newDocumentServer(t, disabledDocument)
	shared := memory.NewSharedSession()
	t.Cleanup(shared.Close)
	reloader := mocks.NewRecordingReloader()

	sh, err := BuildShell(ShellDeps{
		Config:   testAppConfig(docs.URL),
		Shared:   shared,
		Reloader: reloader,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done, err := sh.Start(ctx)
	require.NoError(t, err)
	assert.True(t, sh.Auth.Snapshot().IsDoneLoading)
	assert.True(t, sh.Config.Loaded())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	sh.Close()
	assert.Empty(t, reloader.Reasons())
}
