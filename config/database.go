package config

import (
	"fmt"
	"strings"
)

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// SessionBackend selects where the shared session flag and session-ended channel live.
type SessionBackend string

const (
	// SessionBackendMemory shares session state between shell instances in one process.
	SessionBackendMemory SessionBackend = "memory"
	// SessionBackendRedis shares session state between processes through Redis.
	SessionBackendRedis SessionBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionBackend.
func (b *SessionBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*b = SessionBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionBackend: %q (valid options: memory, redis)", v)
	}
}

// SessionConfig controls cross-instance session signalling.
type SessionConfig struct {
	Backend SessionBackend `env:"SESSION_BACKEND"  envDefault:"memory"`
	FlagKey string         `env:"SESSION_FLAG_KEY" envDefault:"AUTHORIZED"`
	Channel string         `env:"SESSION_CHANNEL"  envDefault:"mmk-shell:session"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = SessionBackendMemory
	}
	if s.FlagKey = strings.TrimSpace(s.FlagKey); s.FlagKey == "" {
		s.FlagKey = "AUTHORIZED"
	}
	if s.Channel = strings.TrimSpace(s.Channel); s.Channel == "" {
		s.Channel = "mmk-shell:session"
	}
}
