package httpx

import (
	"net/http"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
)

// SessionHandlers serves read-only views of the session and the loaded document.
type SessionHandlers struct {
	Auth SessionService
	App  AppInfoService
}

type sessionResponse struct {
	domainauth.SessionState
	AuthEnabled               bool   `json:"auth_enabled"`
	CanActivateProtectedRoute bool   `json:"can_activate_protected_route"`
	RolesDisplay              string `json:"roles_display"`
}

func newSessionResponse(st domainauth.SessionState, enabled bool) sessionResponse {
	return sessionResponse{
		SessionState:              st,
		AuthEnabled:               enabled,
		CanActivateProtectedRoute: st.CanActivateProtectedRoute(),
		RolesDisplay:              st.Identity.RolesDisplay(),
	}
}

// Session returns the current session snapshot.
// GET /api/session.
func (h *SessionHandlers) Session(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, newSessionResponse(h.Auth.Snapshot(), h.Auth.Enabled()))
}

// SessionStream streams a snapshot on every session change, starting with the current one.
// GET /api/session/stream.
func (h *SessionHandlers) SessionStream(w http.ResponseWriter, r *http.Request) {
	states, unsubscribe := h.Auth.Subscribe(streamBuffer)
	defer unsubscribe()
	streamEvents(w, r, "session", states, func(st domainauth.SessionState) any {
		return newSessionResponse(st, h.Auth.Enabled())
	})
}

type appResponse struct {
	Loaded     bool   `json:"loaded"`
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	APIURL     string `json:"api_url"`
}

// AppInfo returns the accessors of the configuration document.
// GET /api/app.
func (h *SessionHandlers) AppInfo(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, appResponse{
		Loaded:     h.App.Loaded(),
		AppName:    h.App.AppName(),
		AppVersion: h.App.AppVersion(),
		APIURL:     h.App.APIURL(),
	})
}
