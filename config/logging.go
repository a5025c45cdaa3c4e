package config

import "strings"

const defaultLogBufferSize = 200

// LoggingConfig controls the in-memory log sink.
type LoggingConfig struct {
	// BufferSize is the ring buffer capacity. Zero keeps no history.
	BufferSize int `env:"LOG_BUFFER_SIZE" envDefault:"200"`

	// Level is the threshold used until the configuration document provides one.
	// Accepts none, errors, warnings, info, verbose or their ordinals.
	Level string `env:"LOG_LEVEL" envDefault:"errors"`
}

// Sanitize applies guardrails to logging configuration values.
func (l *LoggingConfig) Sanitize() {
	if l.BufferSize < 0 {
		l.BufferSize = defaultLogBufferSize
	}
	if l.Level = strings.TrimSpace(l.Level); l.Level == "" {
		l.Level = "errors"
	}
}
