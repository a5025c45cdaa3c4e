package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ui-shell/config"
	httpx "github.com/target/mmk-ui-shell/internal/http"
	"github.com/target/mmk-ui-shell/internal/observability/metrics"
	"github.com/target/mmk-ui-shell/internal/observability/statsd"
	"github.com/target/mmk-ui-shell/internal/ports"
	"golang.org/x/sync/errgroup"
)

const shutdownWaitTimeout = 10 * time.Second

// RunConfig contains the dependencies of the shell process.
type RunConfig struct {
	Config *config.AppConfig // Required
	Logger *slog.Logger
	// Redis backs the shared session when SESSION_BACKEND=redis.
	Redis redis.UniversalClient
	// Shared overrides the shared session built from Config.
	Shared ports.SharedSession
	// Listener overrides the address in Config.HTTP.Addr.
	Listener  net.Listener
	Navigator ports.Navigator
	Transport http.RoundTripper
	// Metrics overrides the StatsD client built from Config.Metrics.
	Metrics statsd.Sink
}

// Run serves the local HTTP surface and keeps one shell instance alive, replacing it
// whenever the current instance is asked to reload. It returns when ctx is done or
// an instance fails to start.
func Run(ctx context.Context, rc RunConfig) error {
	if rc.Config == nil {
		return errors.New("run config missing AppConfig")
	}
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shared := rc.Shared
	if shared == nil {
		built, closeShared, err := BuildSharedSession(SharedSessionConfig{
			Session: rc.Config.Session,
			Redis:   rc.Redis,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer closeShared()
		shared = built
	}

	ln := rc.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", rc.Config.HTTP.Addr); err != nil {
			return fmt.Errorf("listen on %s: %w", rc.Config.HTTP.Addr, err)
		}
	}

	recorder, closeMetrics := buildMetrics(ctx, rc, logger)
	defer closeMetrics()

	current := &instanceHandler{}
	server := newServer(httpx.Recover(logger)(httpx.Logging(logger)(current)))
	reloads := newReloadSignal()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer shutdownServer(server, logger)
		return runInstances(gctx, instanceLoop{
			deps: ShellDeps{
				Config:    rc.Config,
				Shared:    shared,
				Reloader:  reloads,
				Logger:    logger,
				Navigator: rc.Navigator,
				Transport: rc.Transport,
				Metrics:   recorder,
			},
			current: current,
			reloads: reloads,
			metrics: recorder,
			logger:  logger,
		})
	})
	return g.Wait()
}

type instanceLoop struct {
	deps    ShellDeps
	current *instanceHandler
	reloads *reloadSignal
	metrics *metrics.Recorder
	logger  *slog.Logger
}

func runInstances(ctx context.Context, loop instanceLoop) error {
	for generation := 1; ; generation++ {
		sh, err := BuildShell(loop.deps)
		if err != nil {
			return fmt.Errorf("build shell instance: %w", err)
		}
		loop.logger.Info("shell instance starting", "instance", sh.ID, "generation", generation)

		instCtx, cancel := context.WithCancel(ctx)
		loop.current.set(sh.Handler)
		started := time.Now()
		_, err = sh.Start(instCtx)
		loop.metrics.Startup(time.Since(started), err)
		if err != nil {
			cancel()
			sh.Close()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("start shell instance: %w", err)
		}

		select {
		case <-ctx.Done():
			cancel()
			sh.Close()
			return nil
		case reason := <-loop.reloads.C():
			loop.logger.Info("reloading shell instance", "instance", sh.ID, "reason", reason)
			loop.metrics.Reload(reason)
			cancel()
			sh.Close()
		}
	}
}

// buildMetrics returns the process-wide recorder and a func closing its client.
// A StatsD failure is logged and metrics are dropped.
func buildMetrics(ctx context.Context, rc RunConfig, logger *slog.Logger) (*metrics.Recorder, func()) {
	if rc.Metrics != nil {
		return metrics.New(rc.Metrics), func() {}
	}
	cfg := rc.Config.Metrics
	if !cfg.IsEnabled() {
		return metrics.New(nil), func() {}
	}
	client, err := statsd.NewClient(ctx, statsd.Config{
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return metrics.New(nil), func() {}
	}
	logger.Info("statsd metrics enabled", "addr", cfg.StatsdAddress, "prefix", cfg.Prefix)
	return metrics.New(client), func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close statsd client failed", "error", cerr)
		}
	}
}

// reloadSignal implements ports.Reloader for the instance loop.
type reloadSignal struct {
	ch chan string
}

var _ ports.Reloader = (*reloadSignal)(nil)

func newReloadSignal() *reloadSignal {
	return &reloadSignal{ch: make(chan string, 1)}
}

// Reload requests a fresh instance. Requests made while one is pending are merged.
func (r *reloadSignal) Reload(reason string) {
	select {
	case r.ch <- reason:
	default:
	}
}

func (r *reloadSignal) C() <-chan string { return r.ch }

// instanceHandler routes requests to the current instance's router.
type instanceHandler struct {
	h atomic.Pointer[http.Handler]
}

func (i *instanceHandler) set(h http.Handler) { i.h.Store(&h) }

func (i *instanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := i.h.Load()
	if h == nil {
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "starting",
			Err:     errors.New("shell instance is starting"),
		})
		return
	}
	(*h).ServeHTTP(w, r)
}

func newServer(handler http.Handler) *http.Server {
	// No WriteTimeout: log and session streams stay open.
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func shutdownServer(server *http.Server, logger *slog.Logger) {
	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
		_ = server.Close()
		return
	}
	logger.Info("HTTP server stopped")
}
