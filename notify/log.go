package notify

import (
	"context"
	"log/slog"

	"github.com/onnwee/onett-watch/telemetry"
	"github.com/onnwee/onett-watch/watch"
)

// Log writes every event to the structured log. It never fails.
type Log struct {
	Renderer Renderer
}

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(ctx context.Context, ev watch.Event) error {
	msg := l.Renderer.Render(ev)
	telemetry.LoggerWithCorr(ctx).Info("change detected",
		slog.String("type", string(ev.Type)),
		slog.Int64("resource_id", ev.ResourceID),
		slog.String("message", msg.Title),
		slog.String("component", "notify"))
	return nil
}
