package memory

import (
	"context"
	"sync"

	"github.com/target/mmk-ui-shell/internal/broadcast"
	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/ports"
)

var _ ports.SharedSession = (*SharedSession)(nil)

const signalBuffer = 16

// SharedSession is the session flag and signal channel shared by shell instances in one process.
// It outlives individual instances, so a reload sees the flag as left by the previous instance.
type SharedSession struct {
	mu         sync.RWMutex
	authorized bool
	hub        *broadcast.Hub[domainauth.SessionSignal]
}

// NewSharedSession returns a shared session with the flag cleared.
func NewSharedSession() *SharedSession {
	return &SharedSession{hub: broadcast.NewHub[domainauth.SessionSignal]()}
}

// MarkAuthorized sets the flag.
func (s *SharedSession) MarkAuthorized(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = true
	return nil
}

// ClearAuthorized clears the flag.
func (s *SharedSession) ClearAuthorized(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = false
	return nil
}

// IsAuthorized reports the flag.
func (s *SharedSession) IsAuthorized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authorized, nil
}

// Publish delivers sig to every subscriber, including the publisher's own.
func (s *SharedSession) Publish(_ context.Context, sig domainauth.SessionSignal) error {
	s.hub.Publish(sig)
	return nil
}

// Subscribe returns signals published after the call until ctx is done.
func (s *SharedSession) Subscribe(ctx context.Context) (<-chan domainauth.SessionSignal, error) {
	ch, cancel := s.hub.Subscribe(signalBuffer)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, nil
}

// Close closes every subscription.
func (s *SharedSession) Close() {
	s.hub.Close()
}
