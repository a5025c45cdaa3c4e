package httpx

import (
	"errors"
	"net/http"

	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

// LogHandlers exposes the in-memory log ring buffer.
type LogHandlers struct {
	Sink LogService
}

type logsResponse struct {
	Level     logging.Level       `json:"level"`
	LevelName string              `json:"level_name"`
	CacheSize int                 `json:"cache_size"`
	Entries   []logging.EntryView `json:"entries"`
}

// List returns the buffered entries, oldest first.
// GET /api/logs.
func (h *LogHandlers) List(w http.ResponseWriter, _ *http.Request) {
	entries := h.Sink.Entries()
	views := make([]logging.EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View())
	}
	lvl := h.Sink.Level()
	WriteJSON(w, http.StatusOK, logsResponse{
		Level:     lvl,
		LevelName: lvl.String(),
		CacheSize: h.Sink.CacheSize(),
		Entries:   views,
	})
}

type cacheSizeRequest struct {
	Size int `json:"size"`
}

// SetCacheSize resizes the ring buffer, keeping the most recent entries.
// PUT /api/logs/cache-size.
func (h *LogHandlers) SetCacheSize(w http.ResponseWriter, r *http.Request) {
	var req cacheSizeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Size < 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_size",
			Err:     errors.New("size must not be negative"),
		})
		return
	}
	h.Sink.SetCacheSize(req.Size)
	WriteJSON(w, http.StatusOK, map[string]int{"cache_size": h.Sink.CacheSize()})
}

// Stream sends each new entry as a server-sent event.
// GET /api/logs/stream.
func (h *LogHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	entries, unsubscribe := h.Sink.Subscribe(streamBuffer)
	defer unsubscribe()
	streamEvents(w, r, "log", entries, func(e logging.Entry) any { return e.View() })
}
