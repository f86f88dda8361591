package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// readyWindow is how many intervals may pass without a finished tick before /readyz fails.
const readyWindow = 3

// HandleHealthz is the liveness probe.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once a poll tick has finished recently.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	var last time.Time
	if h.deps.LastTick != nil {
		last = h.deps.LastTick()
	}
	reason := ""
	switch {
	case last.IsZero():
		reason = "no poll tick completed yet"
	case h.interval() > 0 && h.now().Sub(last) > readyWindow*h.interval():
		reason = "last poll tick is stale"
	}

	w.Header().Set("Content-Type", "application/json")
	if reason != "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready", "error": reason})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready", "last_tick": last.UTC().Format(time.RFC3339)})
}

func (h *Handlers) now() time.Time {
	if h.deps.Now != nil {
		return h.deps.Now()
	}
	return time.Now()
}

func (h *Handlers) interval() time.Duration { return h.deps.Interval }
