package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/onett-watch/telemetry"
	"github.com/onnwee/onett-watch/watch"
)

type statusResponse struct {
	Day       string     `json:"day"`
	LastTick  *time.Time `json:"last_tick,omitempty"`
	// RemoteBreakerOpen is true while remote fetches are short-circuited.
	RemoteBreakerOpen bool                   `json:"remote_breaker_open"`
	Resources         []watch.ResourceStatus `json:"resources"`
}

// HandleStatus returns the per-resource snapshot summary. It never writes state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	today := h.deps.Days.Today()
	resp := statusResponse{Day: today.String(), Resources: h.deps.Store.Status(today)}
	if h.deps.LastTick != nil {
		if last := h.deps.LastTick(); !last.IsZero() {
			resp.LastTick = &last
		}
	}
	if h.deps.BreakerOpen != nil {
		resp.RemoteBreakerOpen = h.deps.BreakerOpen()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTitles runs the title report.
func (h *Handlers) HandleTitles(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeReport(w, h.deps.Reports.Titles(r.Context()))
}

// HandleGroups runs the group report.
func (h *Handlers) HandleGroups(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeReport(w, h.deps.Reports.Groups(r.Context()))
}

// HandleEvents lists recorded change events newest first.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if h.deps.History == nil {
		http.Error(w, "event history disabled", http.StatusNotFound)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	events, err := h.deps.History.Recent(r.Context(), limit)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("read event history", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeReport(w http.ResponseWriter, lines []string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strings.Join(lines, "\n\n") + "\n"))
}
