package notify

import "fmt"

// DeliveryError reports that a sink failed to accept a notification. The change it
// describes has already been recorded.
type DeliveryError struct {
	Sink string
	// StatusCode is set when the channel answered with a non-success HTTP status.
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver via %s: status %d: %v", e.Sink, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("deliver via %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
