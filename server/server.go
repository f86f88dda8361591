// Package server exposes the HTTP surface: liveness and readiness probes,
// Prometheus metrics, a read-only status view of the watcher, on-demand reports
// and the change-event history. Every request carries a correlation id.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/onett-watch/db"
	"github.com/onnwee/onett-watch/telemetry"
	"github.com/onnwee/onett-watch/watch"
)

// Reporter produces the on-demand report lines. *watch.Query implements it.
type Reporter interface {
	Titles(ctx context.Context) []string
	Groups(ctx context.Context) []string
}

// History reads recorded change events. *db.EventLog implements it.
type History interface {
	Recent(ctx context.Context, limit int) ([]db.StoredEvent, error)
}

// Deps are the collaborators the handlers read from. History and BreakerOpen may be nil.
type Deps struct {
	Store       *watch.Store
	Days        *watch.DayTracker
	Reports     Reporter
	History     History
	LastTick    func() time.Time
	BreakerOpen func() bool
	Interval    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps Deps
}

// NewMux returns the HTTP handler with all routes.
func NewMux(deps Deps) http.Handler {
	h := &Handlers{deps: deps}
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/readyz", h.HandleReadyz)
	mux.HandleFunc("/status", h.HandleStatus)
	mux.HandleFunc("/titles", h.HandleTitles)
	mux.HandleFunc("/groups", h.HandleGroups)
	mux.HandleFunc("/events", h.HandleEvents)

	return withCorrelation(mux)
}

// withCorrelation injects a correlation id and a tracing span around next.
func withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path, telemetry.HTTPRequestAttrs(r)...)
		defer span.End()
		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, rec.statusCode)
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Reports fetch from the remote API, so writes get more room than reads.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr), slog.String("component", "http"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
