package module

import (
	"fmt"
	"sync"
	"time"
)

// Metadata describes the origin of a call or event: a unique transaction
// identifier, the name of the originating module (empty for external
// callers), and the dispatch priority.
type Metadata struct {
	Transaction string
	Source      string
	Priority    Priority
}

// CallOption adjusts the metadata attached to a call or event.
type CallOption func(*Metadata)

// WithPriority sets the dispatch priority, clamped to the valid domain.
func WithPriority(p Priority) CallOption {
	return func(m *Metadata) {
		m.Priority = p.Clamp()
	}
}

// WithSource records the originating module name. Events are not delivered
// back to their source module.
func WithSource(name string) CallOption {
	return func(m *Metadata) {
		m.Source = name
	}
}

// WithTransaction overrides the generated transaction identifier, tying a
// call to an existing transaction.
func WithTransaction(id string) CallOption {
	return func(m *Metadata) {
		m.Transaction = id
	}
}

// NewMetadata builds metadata with a fresh transaction identifier and
// normal priority, then applies the options.
func NewMetadata(opts ...CallOption) Metadata {
	m := Metadata{
		Transaction: nextTransaction(),
		Priority:    PriorityNormal,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Transaction identifiers are "YYYYMMDD-HHMMSS-NNNNNN": UTC wall clock plus
// a counter that resets each second. The counter is guarded so identifiers
// stay unique across goroutines.
var (
	txMu    sync.Mutex
	txLast  string
	txCount int
)

func nextTransaction() string {
	stamp := time.Now().UTC().Format("20060102-150405")

	txMu.Lock()
	defer txMu.Unlock()
	if stamp != txLast {
		txLast = stamp
		txCount = 0
	}
	id := fmt.Sprintf("%s-%06d", stamp, txCount)
	txCount++
	return id
}
