package manager

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/modkit/internal/dispatch"
)

// ShutdownPolicy controls what happens to queued work during Stop.
type ShutdownPolicy int

const (
	// PolicyDrain processes every already-queued item before teardown.
	// This is the default.
	PolicyDrain ShutdownPolicy = iota

	// PolicyDiscard drops queued items after the in-flight one finishes.
	// Pending synchronous callers are released with a shutdown error.
	PolicyDiscard
)

// String returns the policy name.
func (p ShutdownPolicy) String() string {
	switch p {
	case PolicyDrain:
		return "drain"
	case PolicyDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// ParseShutdownPolicy converts a config string into a ShutdownPolicy.
func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drain":
		return PolicyDrain, nil
	case "discard":
		return PolicyDiscard, nil
	default:
		return PolicyDrain, fmt.Errorf("manager: unknown shutdown policy %q", s)
	}
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	capacity  int
	policy    ShutdownPolicy
	errPolicy dispatch.ErrorPolicy
	errFunc   func(*dispatch.InvocationError)
	idleFunc  func()
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		errPolicy: dispatch.ErrorPolicyLog,
	}
}

// WithLogger sets the structured logger used by the manager and its
// dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithQueueCapacity bounds the priority queue. Zero or negative means
// unbounded.
func WithQueueCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithShutdownPolicy selects drain or discard behavior for Stop.
func WithShutdownPolicy(p ShutdownPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithErrorPolicy sets how the dispatch loop treats handler failures.
func WithErrorPolicy(p dispatch.ErrorPolicy) Option {
	return func(o *options) { o.errPolicy = p }
}

// WithErrorFunc installs a callback invoked for forwarded dispatch errors.
func WithErrorFunc(fn func(*dispatch.InvocationError)) Option {
	return func(o *options) { o.errFunc = fn }
}

// WithIdleFunc installs a callback invoked each time the queue transitions
// from busy to empty.
func WithIdleFunc(fn func()) Option {
	return func(o *options) { o.idleFunc = fn }
}
