package dispatch

import (
	"fmt"
	"log/slog"
)

// ErrorPolicy selects how failures inside dispatched items are routed.
type ErrorPolicy int

// Error routing policies.
const (
	// ErrorPolicyLog writes failures to the structured logger. Default.
	ErrorPolicyLog ErrorPolicy = iota

	// ErrorPolicyForward hands failures to the configured error func.
	// Falls back to logging when none is set.
	ErrorPolicyForward

	// ErrorPolicyPropagate terminates the loop with the failure. Run
	// returns the wrapped *InvocationError.
	ErrorPolicyPropagate
)

// String returns a string representation of the policy.
func (p ErrorPolicy) String() string {
	switch p {
	case ErrorPolicyLog:
		return "log"
	case ErrorPolicyForward:
		return "forward"
	case ErrorPolicyPropagate:
		return "propagate"
	default:
		return "unknown"
	}
}

// ParseErrorPolicy parses a configuration string into a policy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "log", "":
		return ErrorPolicyLog, nil
	case "forward":
		return ErrorPolicyForward, nil
	case "propagate":
		return ErrorPolicyPropagate, nil
	default:
		return ErrorPolicyLog, fmt.Errorf("dispatch: unknown error policy %q", s)
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithErrorPolicy sets the failure routing policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithErrorFunc sets the handler used by ErrorPolicyForward.
func WithErrorFunc(fn func(*InvocationError)) Option {
	return func(d *Dispatcher) {
		d.errFn = fn
	}
}

// WithIdleFunc registers an additional callback fired on each idle
// transition, after the becoming_idle broadcast.
func WithIdleFunc(fn func()) Option {
	return func(d *Dispatcher) {
		d.idleFn = fn
	}
}
