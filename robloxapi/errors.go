package robloxapi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch failed. Every kind is handled the same way by
// the poller (skip the resource for this tick); the kind only labels logs and metrics.
type ErrorKind int

const (
	// ErrorKindNetwork covers transport failures and timeouts.
	ErrorKindNetwork ErrorKind = iota
	// ErrorKindStatus is a non-2xx response.
	ErrorKindStatus
	// ErrorKindPayload is an undecodable body or one missing required fields.
	ErrorKindPayload
	// ErrorKindCircuitOpen means the breaker short-circuited the call.
	ErrorKindCircuitOpen
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNetwork:
		return "network"
	case ErrorKindStatus:
		return "status"
	case ErrorKindPayload:
		return "payload"
	case ErrorKindCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// FetchError is returned by every Client call that fails.
type FetchError struct {
	Op         string
	ID         int64
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %d: %s: status %d", e.Op, e.ID, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %d: %s: %v", e.Op, e.ID, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %d: %s", e.Op, e.ID, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, reporting false when err is not a FetchError.
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
