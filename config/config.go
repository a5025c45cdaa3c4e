package config

import (
	"os"
	"strings"
)

// Release identifies which remote configuration document a shell instance loads.
type Release string

const (
	// ReleaseProduction selects app-config.production.json.
	ReleaseProduction Release = "production"
	// ReleaseDevelopment selects app-config.development.json.
	ReleaseDevelopment Release = "development"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication configuration
//   - database.go: Redis and shared session configuration
//   - http.go: HTTP server and remote configuration document location
//   - logging.go: Log sink configuration
//   - observability.go: StatsD metrics
type AppConfig struct {
	// IsDev selects the development configuration document.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Shared session configuration
	Redis   RedisConfig `envPrefix:"REDIS_"`
	Session SessionConfig

	// HTTP server and remote document configuration
	HTTP  HTTPConfig
	Shell ShellConfig

	// Log sink configuration
	Logging LoggingConfig

	// StatsD metrics
	Metrics MetricsConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Shell.Sanitize()
	c.Auth.Sanitize()
	c.Session.Sanitize()
	c.Logging.Sanitize()
	c.Metrics.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Release returns the configuration document release for this process.
func (c *AppConfig) Release() Release {
	if c.IsDev {
		return ReleaseDevelopment
	}
	return ReleaseProduction
}

// ConfigURL returns the absolute URL of the remote configuration document.
func (c *AppConfig) ConfigURL() string {
	return c.Shell.DocumentURL(c.Release())
}

// RedirectURL returns the OIDC redirect URI served by this shell.
func (c *AppConfig) RedirectURL() string {
	return c.HTTP.BaseURL + CallbackPath
}
