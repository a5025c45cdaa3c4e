package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/target/mmk-ui-shell/internal/domain/auth"
	apperrors "github.com/target/mmk-ui-shell/internal/errors"
)

// AuthHandlers provides HTTP handlers for the interactive session lifecycle.
type AuthHandlers struct {
	Svc    SessionService
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginResponse struct {
	Status string `json:"status"`
	Target string `json:"target"`
}

// Login starts the interactive login. The navigator opens the provider page, so
// the request is acknowledged with 202.
// GET /auth/login?target=<optional_relative_path>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	target := relativeTarget(r.URL.Query().Get("target"))

	if err := h.Svc.Login(r.Context(), target); err != nil {
		h.logger().Error("login failed", slog.Any("error", err))
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "login_failed", Err: err})
		return
	}
	if !h.Svc.Enabled() {
		WriteJSON(w, http.StatusOK, loginResponse{Status: "disabled", Target: target})
		return
	}
	WriteJSON(w, http.StatusAccepted, loginResponse{Status: "redirecting", Target: target})
}

// Callback completes the login from the authorization response and redirects to the preserved target.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	target, err := h.Svc.CompleteLogin(r.Context(), r.URL)
	if err != nil {
		h.logger().Warn("login callback rejected", slog.Any("error", err))
		if apperrors.IsAuthProtocol(err) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "login_rejected", Err: err})
			return
		}
		WriteAppError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout ends the session of this instance and every instance sharing it.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context()); err != nil {
		h.logger().Error("logout failed", slog.Any("error", err))
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "logout_failed", Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshResponse struct {
	Refreshed bool                  `json:"refreshed"`
	Token     *domainauth.TokenInfo `json:"token,omitempty"`
}

// Refresh triggers a silent renewal. Failures are reported in the body, never as an error status.
// POST /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	info, ok := h.Svc.Refresh(r.Context())
	resp := refreshResponse{Refreshed: ok}
	if ok {
		resp.Token = &info
	}
	WriteJSON(w, http.StatusOK, resp)
}

// relativeTarget allows only relative paths (no scheme/host) beginning with a single "/".
func relativeTarget(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}
