package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/adapters/memory"
	redisadapter "github.com/target/mmk-ui-shell/internal/adapters/redis"
	"github.com/target/mmk-ui-shell/internal/ports"
)

// SharedSessionConfig selects and configures the shared session backend.
type SharedSessionConfig struct {
	Session config.SessionConfig
	Redis   redis.UniversalClient // required for SessionBackendRedis
	Logger  *slog.Logger
}

// BuildSharedSession returns the session flag and signal channel shared by every
// shell instance, and a func releasing it.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildSharedSession(cfg SharedSessionConfig) (ports.SharedSession, func(), error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Session.Backend {
	case config.SessionBackendMemory, "":
		shared := memory.NewSharedSession()
		return shared, shared.Close, nil
	case config.SessionBackendRedis:
		if cfg.Redis == nil {
			return nil, nil, errors.New("SESSION_BACKEND=redis requires a redis client")
		}
		shared, err := redisadapter.NewSharedSession(redisadapter.SharedSessionOptions{
			Client:  cfg.Redis,
			FlagKey: cfg.Session.FlagKey,
			Channel: cfg.Session.Channel,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis shared session: %w", err)
		}
		// The client belongs to the caller.
		return shared, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend %q", cfg.Session.Backend)
	}
}
