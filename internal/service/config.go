package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/target/mmk-ui-shell/internal/domain/appconfig"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
	"github.com/target/mmk-ui-shell/internal/ports"
	"github.com/tidwall/jsonc"
)

var _ ports.AuthSettingsSource = (*ConfigService)(nil)

// maxDocumentBytes bounds the configuration document body.
const maxDocumentBytes = 1 << 20

// ConfigServiceOptions groups dependencies for ConfigService.
type ConfigServiceOptions struct {
	URL        string       // Required: absolute URL of the configuration document
	HTTPClient *http.Client // Optional: must not carry the request pipeline; defaults to a 10s client
	Logger     *slog.Logger // Optional
}

// ConfigService fetches the remote configuration document once and serves typed accessors.
type ConfigService struct {
	url    string
	client *http.Client
	logger *slog.Logger

	loadMu sync.Mutex
	mu     sync.RWMutex
	doc    *appconfig.Document
}

// NewConfigService constructs a ConfigService. It panics when URL is empty.
func NewConfigService(opts ConfigServiceOptions) *ConfigService {
	if strings.TrimSpace(opts.URL) == "" {
		panic("ConfigService requires a document URL")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigService{
		url:    opts.URL,
		client: client,
		logger: logger.With("component", "config_service"),
	}
}

// Load issues a single GET for the document and stores it for the process lifetime.
// Once a document is stored, further calls return nil without a request.
// Failures are ConfigLoad errors and are not retried.
func (s *ConfigService) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.Loaded() {
		return nil
	}

	doc, err := s.fetch(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "load configuration document", "url", s.url, "error", err)
		return err
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "configuration document loaded", "url", s.url, "app", doc.Name(), "auth_enabled", doc.Auth().Enabled)
	return nil
}

func (s *ConfigService) fetch(ctx context.Context) (*appconfig.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigLoad, "build configuration request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeConfigLoad, "Http failure response for %s", s.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Newf(apperrors.ErrCodeConfigLoad,
			"Http failure response for %s: %d %s", s.url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigLoad, "read configuration document")
	}

	var doc appconfig.Document
	if err := json.Unmarshal(jsonc.ToJSON(body), &doc); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeConfigLoad, "Http failure during parsing for %s", s.url)
	}
	return &doc, nil
}

// Loaded reports whether a document is stored.
func (s *ConfigService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc != nil
}

// Document returns the stored document, or nil before Load succeeds.
// Accessors on a nil document return their defaults.
func (s *ConfigService) Document() *appconfig.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

func (s *ConfigService) AppName() string         { return s.Document().Name() }
func (s *ConfigService) AppVersion() string      { return s.Document().Version() }
func (s *ConfigService) LogLevel() logging.Level { return s.Document().Level() }
func (s *ConfigService) APIURL() string          { return s.Document().API() }

// Auth returns the authConfig block, disabled before the document loads.
func (s *ConfigService) Auth() appconfig.AuthSettings { return s.Document().Auth() }

// URL returns the document URL.
func (s *ConfigService) URL() string { return s.url }

