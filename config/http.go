package config

import (
	"fmt"
	"strings"
	"time"
)

// CallbackPath is the route that receives the OIDC authorization response.
const CallbackPath = "/auth/callback"

const defaultDocumentPath = "/assets/config/app-config.%s.json"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8090"`

	// BaseURL is the externally visible base URL of the shell (e.g., "https://shell.example.com").
	// Used for the OIDC redirect URI and the default post-logout URI.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8090"`

	// ProxyTimeout bounds requests forwarded to the configured API.
	ProxyTimeout time.Duration `env:"HTTP_PROXY_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	if h.ProxyTimeout <= 0 {
		h.ProxyTimeout = 30 * time.Second
	}
}

// ShellConfig locates the remote configuration document.
type ShellConfig struct {
	// ConfigBaseURL is the origin serving the configuration assets.
	ConfigBaseURL string `env:"SHELL_CONFIG_BASE_URL" envDefault:"http://localhost:4200"`

	// ConfigPath is a format string receiving the release name.
	ConfigPath string `env:"SHELL_CONFIG_PATH" envDefault:"/assets/config/app-config.%s.json"`

	// ConfigTimeout bounds the single configuration request.
	ConfigTimeout time.Duration `env:"SHELL_CONFIG_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to shell configuration values.
func (s *ShellConfig) Sanitize() {
	s.ConfigBaseURL = strings.TrimRight(strings.TrimSpace(s.ConfigBaseURL), "/")
	if s.ConfigPath = strings.TrimSpace(s.ConfigPath); s.ConfigPath == "" {
		s.ConfigPath = defaultDocumentPath
	}
	if !strings.HasPrefix(s.ConfigPath, "/") {
		s.ConfigPath = "/" + s.ConfigPath
	}
	if s.ConfigTimeout <= 0 {
		s.ConfigTimeout = 10 * time.Second
	}
}

// DocumentURL returns the configuration document URL for release.
func (s *ShellConfig) DocumentURL(release Release) string {
	path := s.ConfigPath
	if strings.Contains(path, "%s") {
		path = fmt.Sprintf(path, release)
	}
	return s.ConfigBaseURL + path
}
