package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/adapters/memory"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/ports"
)

const document = `{
  "logLevel": 1,
  "appName": "Merry Maker",
  "appVersion": "3.1.0",
  "authConfig": {
    "enabled": true,
    "issuer": "https://idp.example.com",
    "clientId": "mmk-ui",
    "allowedUrls": ["http://localhost:8080/v1/jobs"], // proxied
  },
}`

func testConfig() config.AppConfig {
	cfg := config.AppConfig{
		Shell:   config.ShellConfig{ConfigBaseURL: "http://localhost:4200"},
		Session: config.SessionConfig{Backend: config.SessionBackendRedis},
	}
	cfg.Sanitize()
	return cfg
}

func newCommandContext(t *testing.T, in string, shared ports.SharedSession) (*commandContext, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: testConfig(),
		Out:    &out,
		In:     strings.NewReader(in),
	}
	if shared != nil {
		cmdCtx.openShared = func(context.Context) (ports.SharedSession, func(), error) {
			return shared, func() {}, nil
		}
	}
	return cmdCtx, &out
}

func TestPrintUsageListsCommands(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printUsage(&out))
	for name := range commands() {
		assert.Contains(t, out.String(), name)
	}
	assert.Less(t, strings.Index(out.String(), "end-session"), strings.Index(out.String(), "session-status"))
}

func TestParseFetchConfigFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    fetchConfigOptions
		wantErr bool
	}{
		{
			name: "defaults",
			want: fetchConfigOptions{Release: config.ReleaseProduction, BaseURL: "http://localhost:4200"},
		},
		{
			name: "overrides",
			args: []string{"--release", "Development", "--base-url", "http://assets.test/", "--raw"},
			want: fetchConfigOptions{Release: config.ReleaseDevelopment, BaseURL: "http://assets.test", Raw: true},
		},
		{name: "bad release", args: []string{"--release=staging"}, wantErr: true},
		{name: "empty base url", args: []string{"--base-url="}, wantErr: true},
		{name: "unknown flag", args: []string{"--site-id=1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFetchConfigFlags(testConfig(), tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newDocumentServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/config/app-config.development.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, document)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunFetchConfig(t *testing.T) {
	srv := newDocumentServer(t)
	cmdCtx, out := newCommandContext(t, "", nil)

	require.NoError(t, runFetchConfig(cmdCtx, []string{"--release", "development", "--base-url", srv.URL}))

	text := out.String()
	assert.Contains(t, text, "Merry Maker")
	assert.Contains(t, text, "3.1.0")
	assert.Contains(t, text, " localhost:8080/v1\n")
	assert.Contains(t, text, "ERRORS (1)")
	assert.Contains(t, text, "https://idp.example.com")
	assert.Contains(t, text, "http://localhost:8080/v1/jobs")
}

func TestRunFetchConfig_Raw(t *testing.T) {
	srv := newDocumentServer(t)
	cmdCtx, out := newCommandContext(t, "", nil)

	require.NoError(t, runFetchConfig(cmdCtx, []string{"--release=development", "--base-url=" + srv.URL, "--raw"}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "Merry Maker", doc["appName"])
}

func TestRunFetchConfig_MissingDocument(t *testing.T) {
	srv := newDocumentServer(t)
	cmdCtx, _ := newCommandContext(t, "", nil)

	err := runFetchConfig(cmdCtx, []string{"--base-url", srv.URL})
	require.Error(t, err)
}

func TestRunSessionStatus(t *testing.T) {
	shared := memory.NewSharedSession()
	t.Cleanup(shared.Close)
	cmdCtx, out := newCommandContext(t, "", shared)

	require.NoError(t, runSessionStatus(cmdCtx, nil))
	assert.Contains(t, out.String(), `"AUTHORIZED": not set`)

	require.NoError(t, shared.MarkAuthorized(context.Background()))
	out.Reset()
	require.NoError(t, runSessionStatus(cmdCtx, nil))
	assert.Contains(t, out.String(), `"AUTHORIZED": set`)
}

func TestRunSessionStatus_RequiresRedisBackend(t *testing.T) {
	cmdCtx, _ := newCommandContext(t, "", nil)
	cmdCtx.Config.Session.Backend = config.SessionBackendMemory

	err := runSessionStatus(cmdCtx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_BACKEND=redis")
}

func TestRunEndSession(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		input   string
		wantErr bool
	}{
		{name: "yes flag", args: []string{"--yes"}},
		{name: "short yes flag", args: []string{"-y"}},
		{name: "confirmed", input: "y\n"},
		{name: "declined", input: "n\n", wantErr: true},
		{name: "no input", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := memory.NewSharedSession()
			t.Cleanup(shared.Close)
			require.NoError(t, shared.MarkAuthorized(context.Background()))

			ctx, cancel := context.WithCancel(context.Background())
			t.Cleanup(cancel)
			signals, err := shared.Subscribe(ctx)
			require.NoError(t, err)

			cmdCtx, _ := newCommandContext(t, tt.input, shared)
			err = runEndSession(cmdCtx, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				ok, _ := shared.IsAuthorized(context.Background())
				assert.True(t, ok, "flag untouched when aborted")
				return
			}
			require.NoError(t, err)

			ok, err := shared.IsAuthorized(context.Background())
			require.NoError(t, err)
			assert.False(t, ok)

			select {
			case sig := <-signals:
				assert.Equal(t, domainauth.SignalSessionEnded, sig.Type)
				assert.Equal(t, adminOrigin, sig.Origin)
			case <-time.After(time.Second):
				t.Fatal("no session-ended signal")
			}
		})
	}
}
