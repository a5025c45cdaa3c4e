package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/mmk-ui-shell/config"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

// InitLogger initializes the structured logger. Debug output is kept so verbose
// log sink entries reach the console.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := ValidateConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateConfig checks values that Sanitize cannot repair.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.HTTP.BaseURL == "" {
		return errors.New("APP_BASE_URL is required")
	}
	if cfg.Shell.ConfigBaseURL == "" {
		return errors.New("SHELL_CONFIG_BASE_URL is required")
	}
	if cfg.Auth.Mode == config.AuthModeMock && cfg.Auth.DevAuth.Username == "" {
		return errors.New("DEV_AUTH_USERNAME is required when AUTH_MODE=mock")
	}
	return nil
}
