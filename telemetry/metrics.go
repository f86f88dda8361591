// Package telemetry provides Prometheus metrics, OpenTelemetry tracing and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	Ticks            prometheus.Counter
	Fetches          *prometheus.CounterVec
	FetchFailures    *prometheus.CounterVec
	Events           *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
	DayResets        prometheus.Counter

	// Histograms (seconds)
	TickDuration prometheus.Observer

	// Gauges
	DailyCount *prometheus.GaugeVec
)

// Init registers metrics (idempotent). Recording helpers are no-ops before Init.
func Init() {
	once.Do(func() {
		Ticks = promauto.NewCounter(prometheus.CounterOpts{Name: "watch_ticks_total", Help: "Number of completed poll ticks"})
		Fetches = promauto.NewCounterVec(prometheus.CounterOpts{Name: "watch_fetches_total", Help: "Resource fetches attempted"}, []string{"kind"})
		FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "watch_fetch_failures_total", Help: "Resource fetches that failed"}, []string{"kind", "reason"})
		Events = promauto.NewCounterVec(prometheus.CounterOpts{Name: "watch_events_total", Help: "Change events emitted"}, []string{"type"})
		DeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "watch_deliveries_failed_total", Help: "Notifications a sink failed to deliver"}, []string{"sink"})
		DayResets = promauto.NewCounter(prometheus.CounterOpts{Name: "watch_day_resets_total", Help: "Daily counter resets at the day boundary"})
		TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "watch_tick_duration_seconds", Help: "Poll tick duration seconds", Buckets: prometheus.DefBuckets})
		DailyCount = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "watch_daily_count", Help: "Changes detected today per resource"}, []string{"resource"})
	})
}

// RecordTick counts a finished tick and observes its duration.
func RecordTick(d time.Duration) {
	if Ticks != nil {
		Ticks.Inc()
	}
	if TickDuration != nil {
		TickDuration.Observe(d.Seconds())
	}
}

// RecordFetch counts a fetch for kind; a non-empty reason also counts a failure.
func RecordFetch(kind, reason string) {
	if Fetches != nil {
		Fetches.WithLabelValues(kind).Inc()
	}
	if reason != "" && FetchFailures != nil {
		FetchFailures.WithLabelValues(kind, reason).Inc()
	}
}

// RecordEvent counts an emitted change event.
func RecordEvent(eventType string) {
	if Events != nil {
		Events.WithLabelValues(eventType).Inc()
	}
}

// RecordDeliveryFailure counts a failed delivery for sink.
func RecordDeliveryFailure(sink string) {
	if DeliveryFailures != nil {
		DeliveryFailures.WithLabelValues(sink).Inc()
	}
}

// RecordDayReset counts a day-boundary reset.
func RecordDayReset() {
	if DayResets != nil {
		DayResets.Inc()
	}
}

// SetDailyCount publishes a resource's counter.
func SetDailyCount(resource string, n uint) {
	if DailyCount != nil {
		DailyCount.WithLabelValues(resource).Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
