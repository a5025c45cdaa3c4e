package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	streamBuffer    = 64
	streamKeepAlive = 30 * time.Second
)

// streamEvents writes values from ch as server-sent events until the client goes
// away or ch closes. render maps each value onto its JSON payload.
func streamEvents[T any](w http.ResponseWriter, r *http.Request, event string, ch <-chan T, render func(T) any) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(render(v))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
