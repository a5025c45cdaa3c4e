package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/adapters/browser"
	"github.com/target/mmk-ui-shell/internal/adapters/claims"
	"github.com/target/mmk-ui-shell/internal/adapters/devauth"
	"github.com/target/mmk-ui-shell/internal/adapters/memory"
	"github.com/target/mmk-ui-shell/internal/adapters/oidc"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
	httpx "github.com/target/mmk-ui-shell/internal/http"
	"github.com/target/mmk-ui-shell/internal/observability/logsink"
	"github.com/target/mmk-ui-shell/internal/observability/metrics"
	"github.com/target/mmk-ui-shell/internal/ports"
	"github.com/target/mmk-ui-shell/internal/service"
)

// ShellDeps contains the long-lived dependencies a shell instance is built from.
type ShellDeps struct {
	Config   *config.AppConfig   // Required
	Shared   ports.SharedSession // Required
	Reloader ports.Reloader      // Required
	Logger   *slog.Logger
	// Navigator overrides the browser or log navigator selected by AUTH_OPEN_BROWSER.
	Navigator ports.Navigator
	// Transport overrides the base transport for outgoing requests.
	Transport http.RoundTripper
	// Metrics receives API request outcomes. Optional.
	Metrics *metrics.Recorder
}

// Shell is one running shell instance: its own tab storage, log sink, configuration
// and auth session. A reload discards the instance and builds a new one.
type Shell struct {
	ID          string
	Sink        *logsink.Sink
	Config      *service.ConfigService
	Storage     *service.CrossTabStorage
	Auth        *service.AuthService
	Initializer *service.AppInitializer
	Handler     http.Handler

	logger *slog.Logger
}

// BuildShell wires a new shell instance. Nothing is fetched until Start.
func BuildShell(deps ShellDeps) (*Shell, error) {
	if deps.Config == nil || deps.Shared == nil || deps.Reloader == nil {
		return nil, errors.New("shell requires Config, Shared and Reloader")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storage := service.NewCrossTabStorage(service.CrossTabStorageOptions{
		Tab:      memory.NewTabStorage(),
		Shared:   deps.Shared,
		Reloader: deps.Reloader,
		Logger:   logger,
	})
	logger = logger.With("instance", storage.Instance())

	sink, err := buildSink(cfg.Logging, logger)
	if err != nil {
		return nil, err
	}

	configSvc := service.NewConfigService(service.ConfigServiceOptions{
		URL:        cfg.ConfigURL(),
		HTTPClient: &http.Client{Timeout: cfg.Shell.ConfigTimeout, Transport: deps.Transport},
		Logger:     logger,
	})

	navigator := deps.Navigator
	if navigator == nil {
		navigator = buildNavigator(cfg.Auth, logger)
	}
	client, err := buildOIDCClient(oidcClientDeps{
		Auth:      cfg.Auth,
		Storage:   storage,
		Navigator: navigator,
		Transport: deps.Transport,
		Logger:    logger,
	})
	if err != nil {
		sink.Close()
		return nil, err
	}

	mapper, err := claims.NewMapper(claims.Paths{
		CommonName: cfg.Auth.Claims.CommonName,
		Username:   cfg.Auth.Claims.Username,
		Roles:      cfg.Auth.Claims.Roles,
	})
	if err != nil {
		client.Close()
		sink.Close()
		return nil, fmt.Errorf("claims mapper: %w", err)
	}

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Client:   client,
		Settings: configSvc,
		Claims:   mapper,
		Logger:   sink,
		Config: service.AuthServiceConfig{
			RedirectURI:   cfg.RedirectURL(),
			PostLogoutURI: cfg.HTTP.BaseURL,
			RefreshFactor: cfg.Auth.SilentRefreshFactor,
		},
	})

	transportOpts := httpx.APITransportOptions{
		Base:   proxyBaseTransport(deps.Transport, cfg.HTTP),
		Auth:   authSvc,
		Tokens: storage,
		Logger: sink,
	}
	if deps.Metrics != nil {
		transportOpts.Observer = deps.Metrics
	}
	apiTransport, err := httpx.NewAPITransport(transportOpts)
	if err != nil {
		authSvc.Close()
		sink.Close()
		return nil, fmt.Errorf("api transport: %w", err)
	}

	return &Shell{
		ID:          storage.Instance(),
		Sink:        sink,
		Config:      configSvc,
		Storage:     storage,
		Auth:        authSvc,
		Initializer: service.NewAppInitializer(service.AppInitializerOptions{Config: configSvc, Auth: authSvc, Levels: sink}),
		Handler: httpx.NewRouter(httpx.RouterServices{
			Auth:         authSvc,
			App:          configSvc,
			Logs:         sink,
			APITransport: apiTransport,
			Logger:       logger,
		}),
		logger: logger,
	}, nil
}

// Start listens for session signals from other instances and runs the startup synchronizer.
// The returned channel closes when the listener stops.
func (s *Shell) Start(ctx context.Context) (<-chan struct{}, error) {
	done, err := s.Storage.Listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("listen for session signals: %w", err)
	}
	if err := s.Initializer.Synchronize(ctx); err != nil {
		return done, err
	}
	s.logger.Info("shell instance ready",
		"app", s.Config.AppName(),
		"version", s.Config.AppVersion(),
		"auth_enabled", s.Auth.Enabled(),
		"authenticated", s.Auth.Snapshot().IsAuthenticated,
	)
	return done, nil
}

// Close releases the instance's auth session and log subscriptions.
func (s *Shell) Close() {
	s.Auth.Close()
	s.Sink.Close()
}

func buildSink(cfg config.LoggingConfig, console *slog.Logger) (*logsink.Sink, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	capacity := cfg.BufferSize
	return logsink.New(logsink.Options{
		Console:  console.With("component", "log_sink"),
		Capacity: &capacity,
		Level:    level,
	}), nil
}

//nolint:ireturn // the navigator is chosen at runtime.
func buildNavigator(cfg config.AuthConfig, logger *slog.Logger) ports.Navigator {
	if cfg.OpenBrowser {
		return browser.NewSystemNavigator(logger)
	}
	return browser.NewLogNavigator(logger)
}

type oidcClientDeps struct {
	Auth      config.AuthConfig
	Storage   ports.Storage
	Navigator ports.Navigator
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// buildOIDCClient picks the client implementation for the configured auth mode.
//
//nolint:ireturn // the client implementation is chosen at runtime.
func buildOIDCClient(deps oidcClientDeps) (ports.OIDCClient, error) {
	switch deps.Auth.Mode {
	case config.AuthModeMock:
		deps.Logger.Warn("dev auth mode enabled; tokens are minted locally", "username", deps.Auth.DevAuth.Username)
		client, err := devauth.NewClient(devauth.Config{
			Username:   deps.Auth.DevAuth.Username,
			CommonName: deps.Auth.DevAuth.CommonName,
			Roles:      deps.Auth.DevAuth.Roles,
			TokenTTL:   deps.Auth.DevAuth.TokenTTL,
			Storage:    deps.Storage,
			Navigator:  deps.Navigator,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth client: %w", err)
		}
		return client, nil
	case config.AuthModeOAuth, "":
		client, err := oidc.NewClient(oidc.ClientOptions{
			Storage:    deps.Storage,
			Navigator:  deps.Navigator,
			HTTPClient: &http.Client{Timeout: deps.Auth.HTTPTimeout, Transport: deps.Transport},
			Logger:     deps.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", deps.Auth.Mode)
	}
}

// proxyBaseTransport bounds how long proxied API calls wait for response headers.
//
//nolint:ireturn // tests may inject any RoundTripper.
func proxyBaseTransport(override http.RoundTripper, cfg config.HTTPConfig) http.RoundTripper {
	if override != nil {
		return override
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return http.DefaultTransport
	}
	t := base.Clone()
	t.ResponseHeaderTimeout = cfg.ProxyTimeout
	return t
}
