package httpx

import (
	"log/slog"
	"net/http"
)

const proxyPrefix = "/api/proxy"

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth SessionService // Required
	App  AppInfoService // Required
	Logs LogService     // Required
	// APITransport carries proxied API requests; when nil the proxy is not mounted.
	APITransport http.RoundTripper
	Logger       *slog.Logger
}

// NewRouter creates and configures the shell's local HTTP surface.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{Svc: services.Auth, Logger: services.Logger}
	sessionHandlers := &SessionHandlers{Auth: services.Auth, App: services.App}
	logHandlers := &LogHandlers{Sink: services.Logs}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Auth, services.App))

	registerAuthRoutes(mux, authHandlers)
	registerSessionRoutes(mux, sessionHandlers)
	registerLogRoutes(mux, logHandlers)

	if services.APITransport != nil {
		proxy := &APIProxy{App: services.App, Transport: services.APITransport, Logger: services.Logger}
		mux.Handle(proxyPrefix+"/", RequireSession(services.Auth)(http.StripPrefix(proxyPrefix, proxy)))
	}

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.HandleFunc("GET /api/session", h.Session)
	mux.HandleFunc("GET /api/session/stream", h.SessionStream)
	mux.HandleFunc("GET /api/app", h.AppInfo)
}

func registerLogRoutes(mux *http.ServeMux, h *LogHandlers) {
	mux.HandleFunc("GET /api/logs", h.List)
	mux.HandleFunc("PUT /api/logs/cache-size", h.SetCacheSize)
	mux.HandleFunc("GET /api/logs/stream", h.Stream)
}
