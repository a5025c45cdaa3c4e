package httpx

import (
	"context"
	"net/url"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

// SessionService is the auth session surface used by the handlers.
type SessionService interface {
	Snapshot() domainauth.SessionState
	Subscribe(buffer int) (<-chan domainauth.SessionState, func())
	CanActivateProtectedRoute() bool
	Enabled() bool
	Login(ctx context.Context, targetURL string) error
	CompleteLogin(ctx context.Context, callback *url.URL) (string, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (domainauth.TokenInfo, bool)
}

// AppInfoService exposes accessors of the loaded configuration document.
type AppInfoService interface {
	Loaded() bool
	AppName() string
	AppVersion() string
	APIURL() string
}

// LogService is the log sink surface used by the handlers.
type LogService interface {
	Entries() []logging.Entry
	Level() logging.Level
	CacheSize() int
	SetCacheSize(size int)
	Subscribe(buffer int) (<-chan logging.Entry, func())
}
