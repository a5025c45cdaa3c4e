package redis

// Package redis provides Redis-based adapters for sharing a session between shell processes.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/ports"
)

var _ ports.SharedSession = (*SharedSession)(nil)

const signalBuffer = 16

// SharedSessionOptions configures a SharedSession.
type SharedSessionOptions struct {
	Client  redis.UniversalClient
	FlagKey string // default "AUTHORIZED"
	Channel string // default "mmk-shell:session"
	Logger  *slog.Logger
}

// SharedSession stores the session flag as a Redis key and sends session signals over pub/sub.
type SharedSession struct {
	client  redis.UniversalClient
	flagKey string
	channel string
	logger  *slog.Logger
}

// NewSharedSession creates a Redis-backed shared session.
func NewSharedSession(opts SharedSessionOptions) (*SharedSession, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	flagKey := opts.FlagKey
	if flagKey == "" {
		flagKey = "AUTHORIZED"
	}
	channel := opts.Channel
	if channel == "" {
		channel = "mmk-shell:session"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SharedSession{
		client:  opts.Client,
		flagKey: flagKey,
		channel: channel,
		logger:  logger.With("component", "redis_shared_session"),
	}, nil
}

// MarkAuthorized sets the flag key without expiry.
func (s *SharedSession) MarkAuthorized(ctx context.Context) error {
	if err := s.client.Set(ctx, s.flagKey, "true", 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.flagKey, err)
	}
	return nil
}

// ClearAuthorized deletes the flag key.
func (s *SharedSession) ClearAuthorized(ctx context.Context) error {
	if err := s.client.Del(ctx, s.flagKey).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.flagKey, err)
	}
	return nil
}

// IsAuthorized reports whether the flag key exists.
func (s *SharedSession) IsAuthorized(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.flagKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", s.flagKey, err)
	}
	return n > 0, nil
}

// Publish sends sig as JSON on the session channel.
func (s *SharedSession) Publish(ctx context.Context, sig domainauth.SessionSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal session signal: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", s.channel, err)
	}
	return nil
}

// Subscribe listens on the session channel until ctx is done.
// The subscription is confirmed before Subscribe returns, so no later Publish is missed.
func (s *SharedSession) Subscribe(ctx context.Context) (<-chan domainauth.SessionSignal, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		if closeErr := pubsub.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close pubsub: %w", closeErr))
		}
		return nil, fmt.Errorf("redis subscribe %s: %w", s.channel, err)
	}

	out := make(chan domainauth.SessionSignal, signalBuffer)
	go s.pump(ctx, pubsub, out)
	return out, nil
}

func (s *SharedSession) pump(ctx context.Context, pubsub *redis.PubSub, out chan<- domainauth.SessionSignal) {
	defer close(out)
	defer func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("close pubsub", "error", err)
		}
	}()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var sig domainauth.SessionSignal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				s.logger.Warn("discard malformed session signal", "error", err)
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return
			}
		}
	}
}
