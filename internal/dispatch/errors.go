package dispatch

import (
	"errors"
	"fmt"

	"github.com/dshills/modkit/internal/module"
)

// Dispatch errors.
var (
	// ErrShutdown indicates a call was attempted while the system is
	// stopping or stopped. Bridged callers blocked past shutdown initiation
	// are released with this error rather than left hanging.
	ErrShutdown = errors.New("dispatch: shutting down")

	// ErrPanic indicates a dispatched callable panicked. The panic value
	// and stack are attached to the wrapping error text.
	ErrPanic = errors.New("dispatch: handler panic")

	// ErrEmptyEvent indicates Trigger was called with an empty event name.
	ErrEmptyEvent = errors.New("dispatch: empty event name")
)

// InvocationError wraps a failure raised by a dispatched (queued) callable.
// The loop catches these and routes them to the configured handler; they
// never abort other queued items.
type InvocationError struct {
	// Target is the dotted address of the failed callable ("mod.method",
	// or "mod.on_event" for an event handler).
	Target string

	// Meta is the metadata of the originating request.
	Meta module.Metadata

	// Err is the callee's original failure.
	Err error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("dispatch: %s failed: %v", e.Target, e.Err)
}

// Unwrap returns the callee's original failure.
func (e *InvocationError) Unwrap() error {
	return e.Err
}
