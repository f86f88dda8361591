package notify

import (
	"context"
	"errors"

	"github.com/onnwee/onett-watch/telemetry"
	"github.com/onnwee/onett-watch/watch"
)

// Sink is a named notifier.
type Sink interface {
	watch.Notifier
	Name() string
}

// Multi delivers each event to every sink in order. One sink failing does not
// stop the others; the per-sink errors are joined.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, ev watch.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, ev); err != nil {
			telemetry.RecordDeliveryFailure(s.Name())
			var de *DeliveryError
			if !errors.As(err, &de) {
				err = &DeliveryError{Sink: s.Name(), Err: err}
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names lists the configured sinks.
func (m Multi) Names() []string {
	out := make([]string, 0, len(m))
	for _, s := range m {
		out = append(out, s.Name())
	}
	return out
}
