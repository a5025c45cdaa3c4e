// Package appconfig models the remote configuration document fetched at startup.
// Accessors return fixed defaults for missing fields instead of failing.
package appconfig

import (
	"strings"

	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

const (
	defaultAPIURL     = "localhost:8080"
	defaultAPIVersion = "v1"
)

// Document is the JSON configuration document. Fields are optional.
type Document struct {
	LogLevel   *logging.Level `json:"logLevel,omitempty"`
	AppName    *string        `json:"appName,omitempty"`
	AppVersion *string        `json:"appVersion,omitempty"`
	APIURL     *string        `json:"apiUrl,omitempty"`
	APIVersion *string        `json:"apiVersion,omitempty"`
	AuthConfig *AuthSettings  `json:"authConfig,omitempty"`
}

// AuthSettings is the authConfig block of the document.
type AuthSettings struct {
	Enabled              bool     `json:"enabled"`
	Issuer               string   `json:"issuer,omitempty"`
	ClientID             string   `json:"clientId,omitempty"`
	AllowedURLs          []string `json:"allowedUrls,omitempty"`
	ShowDebugInformation bool     `json:"showDebugInformation,omitempty"`
	Resource             string   `json:"resource,omitempty"`
	PostLogoutURI        string   `json:"postLogoutUri,omitempty"`
}

// Name returns the application name or "".
func (d *Document) Name() string {
	if d == nil || d.AppName == nil {
		return ""
	}
	return *d.AppName
}

// Version returns the application version or "".
func (d *Document) Version() string {
	if d == nil || d.AppVersion == nil {
		return ""
	}
	return *d.AppVersion
}

// Level returns the configured log level, or None when unset.
func (d *Document) Level() logging.Level {
	lvl, _ := d.ConfiguredLevel()
	return lvl
}

// ConfiguredLevel returns the log level and whether the document sets one.
func (d *Document) ConfiguredLevel() (logging.Level, bool) {
	if d == nil || d.LogLevel == nil {
		return logging.None, false
	}
	return *d.LogLevel, true
}

// API returns "<apiUrl>/<apiVersion>" with localhost:8080 and v1 as defaults.
func (d *Document) API() string {
	base, version := defaultAPIURL, defaultAPIVersion
	if d != nil && d.APIURL != nil {
		base = *d.APIURL
	}
	if d != nil && d.APIVersion != nil {
		version = *d.APIVersion
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(version, "/")
}

// Auth returns the auth settings. A missing block yields a disabled zero value.
func (d *Document) Auth() AuthSettings {
	if d == nil || d.AuthConfig == nil {
		return AuthSettings{}
	}
	s := *d.AuthConfig
	s.AllowedURLs = append([]string(nil), d.AuthConfig.AllowedURLs...)
	return s
}

// AllowsURL reports whether rawURL is on the allow-list.
// The lower-cased URL must equal an entry exactly.
func (s AuthSettings) AllowsURL(rawURL string) bool {
	target := strings.ToLower(rawURL)
	for _, allowed := range s.AllowedURLs {
		if allowed == target {
			return true
		}
	}
	return false
}
