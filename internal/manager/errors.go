package manager

import (
	"errors"
	"fmt"
)

// Lifecycle errors.
var (
	// ErrAlreadyStarted is returned by Start and Register after the manager
	// has left the Created state.
	ErrAlreadyStarted = errors.New("manager: already started")

	// ErrNotStopping is returned by Unregister outside the Stopping phase.
	// Removing a module while the loop may still dispatch to it would race
	// with delivery.
	ErrNotStopping = errors.New("manager: unregister only permitted while stopping")
)

// StartupError reports which module aborted startup. Modules that were
// already started are torn down before Start returns this error.
type StartupError struct {
	Module string
	Phase  string // "startup" or "activate"
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("manager: %s of module %q failed: %v", e.Phase, e.Module, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
