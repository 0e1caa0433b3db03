package queue

import "errors"

// Queue errors.
var (
	// ErrFull is returned by Put when a configured capacity bound is
	// exceeded. The producer is never blocked.
	ErrFull = errors.New("queue: full")

	// ErrClosed is returned by Put after Close, and by Take once the queue
	// is closed and drained.
	ErrClosed = errors.New("queue: closed")
)
