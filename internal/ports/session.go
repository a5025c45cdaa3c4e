package ports

import (
	"context"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
)

// Storage is the key/value store the OIDC client persists tokens in.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// TabStorage is storage scoped to one shell instance.
type TabStorage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	Clear()
}

// SessionFlag is the shared "a session exists somewhere" marker.
type SessionFlag interface {
	MarkAuthorized(ctx context.Context) error
	ClearAuthorized(ctx context.Context) error
	IsAuthorized(ctx context.Context) (bool, error)
}

// SessionBroadcaster delivers session signals to every shell instance sharing the session.
type SessionBroadcaster interface {
	Publish(ctx context.Context, sig domainauth.SessionSignal) error
	// Subscribe returns a channel closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan domainauth.SessionSignal, error)
}

// SharedSession combines the flag and the broadcaster, as backends provide both.
type SharedSession interface {
	SessionFlag
	SessionBroadcaster
}

// Reloader forces a full reload of the shell instance.
type Reloader interface {
	Reload(reason string)
}
