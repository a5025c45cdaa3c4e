package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	// Nothing more to do if the client connection is gone.
	_, _ = io.WriteString(w, healthResponse)
}

type readinessResponse struct {
	Status       string `json:"status"`
	ConfigLoaded bool   `json:"config_loaded"`
	DoneLoading  bool   `json:"done_loading"`
}

// readyHandler reports 200 once startup has finished loading, 503 before.
func readyHandler(auth SessionService, app AppInfoService) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := readinessResponse{
			Status:       "ok",
			ConfigLoaded: app.Loaded(),
			DoneLoading:  auth.Snapshot().IsDoneLoading,
		}
		code := http.StatusOK
		if !resp.ConfigLoaded || !resp.DoneLoading {
			resp.Status = "starting"
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, resp)
	}
}
