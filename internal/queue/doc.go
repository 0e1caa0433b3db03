// Package queue implements the thread-safe priority queue feeding the
// dispatch loop.
//
// Items are ordered by (priority, sequence); the sequence counter is
// assigned under the insertion lock, so submissions racing from different
// goroutines still interleave deterministically by arrival. Any number of
// producers may Put; exactly one consumer Takes.
package queue
