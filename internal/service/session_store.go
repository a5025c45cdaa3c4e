package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/ports"
)

var _ ports.Storage = (*CrossTabStorage)(nil)

// ReloadReasonSessionEnded is passed to the Reloader when another instance ends the session.
const ReloadReasonSessionEnded = "session ended in another shell instance"

// CrossTabStorageOptions groups dependencies for CrossTabStorage.
type CrossTabStorageOptions struct {
	Tab      ports.TabStorage     // Required: storage scoped to this instance
	Shared   ports.SharedSession  // Required: flag and signal channel shared by instances
	Reloader ports.Reloader       // Required: forces a full reload of this instance
	Logger   *slog.Logger         // Optional
	Instance string               // Optional: instance ID used as signal origin; defaults to a new UUID
	Now      func() time.Time     // Optional
}

// CrossTabStorage keeps OIDC client state in tab storage and mirrors the access token's
// presence into the shared session flag. Removing the token announces session_ended
// so every other instance clears its storage and reloads.
type CrossTabStorage struct {
	tab      ports.TabStorage
	shared   ports.SharedSession
	reloader ports.Reloader
	logger   *slog.Logger
	instance string
	now      func() time.Time
}

// NewCrossTabStorage constructs a CrossTabStorage. It panics when a required dependency is nil.
func NewCrossTabStorage(opts CrossTabStorageOptions) *CrossTabStorage {
	if opts.Tab == nil || opts.Shared == nil || opts.Reloader == nil {
		panic("CrossTabStorage requires Tab, Shared and Reloader")
	}
	instance := opts.Instance
	if instance == "" {
		instance = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CrossTabStorage{
		tab:      opts.Tab,
		shared:   opts.Shared,
		reloader: opts.Reloader,
		logger:   logger.With("component", "cross_tab_storage", "instance", instance),
		instance: instance,
		now:      now,
	}
}

// Instance returns the ID this storage signs its broadcasts with.
func (s *CrossTabStorage) Instance() string { return s.instance }

// GetItem reads key from tab storage.
func (s *CrossTabStorage) GetItem(key string) (string, bool) {
	return s.tab.Get(key)
}

// SetItem writes key to tab storage. Writing the access token also raises the shared flag.
func (s *CrossTabStorage) SetItem(ctx context.Context, key, value string) error {
	s.tab.Set(key, value)
	if key != domainauth.KeyAccessToken {
		return nil
	}
	if err := s.shared.MarkAuthorized(ctx); err != nil {
		return fmt.Errorf("mark session authorized: %w", err)
	}
	return nil
}

// RemoveItem removes key from tab storage. Removing the access token also clears the
// shared flag and broadcasts session_ended.
func (s *CrossTabStorage) RemoveItem(ctx context.Context, key string) error {
	s.tab.Remove(key)
	if key != domainauth.KeyAccessToken {
		return nil
	}

	var errs []error
	if err := s.shared.ClearAuthorized(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear session flag: %w", err))
	}
	sig := domainauth.SessionSignal{Type: domainauth.SignalSessionEnded, Origin: s.instance, At: s.now().UTC()}
	if err := s.shared.Publish(ctx, sig); err != nil {
		errs = append(errs, fmt.Errorf("publish session ended: %w", err))
	}
	return errors.Join(errs...)
}

// Listen subscribes to session signals and handles them until ctx is done.
// The subscription is active when Listen returns; done closes when handling stops.
// Signals from this instance are ignored.
func (s *CrossTabStorage) Listen(ctx context.Context) (<-chan struct{}, error) {
	signals, err := s.shared.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe to session signals: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if s.handle(sig) {
					return
				}
			}
		}
	}()
	return done, nil
}

// handle reports whether the instance was asked to reload.
func (s *CrossTabStorage) handle(sig domainauth.SessionSignal) bool {
	if sig.Origin == s.instance || sig.Type != domainauth.SignalSessionEnded {
		return false
	}
	s.logger.Info("session ended elsewhere; clearing tab storage", "origin", sig.Origin)
	s.tab.Clear()
	s.reloader.Reload(ReloadReasonSessionEnded)
	return true
}
