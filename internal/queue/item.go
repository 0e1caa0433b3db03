package queue

import "github.com/dshills/modkit/internal/module"

// Kind tags a queue item as a deferred method call or an event broadcast.
type Kind int

// Item kinds.
const (
	// KindTask is a deferred invocation of a single wire method.
	KindTask Kind = iota
	// KindEvent is a deferred broadcast to every matching event handler.
	KindEvent
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Result is the outcome delivered to a caller blocked on a bridged
// synchronous call.
type Result struct {
	Value any
	Err   error
}

// Item is a pending Task or Event. Target is set for tasks, Event for
// events. Reply, when non-nil, is a one-shot slot (capacity 1) that the
// loop fills with the invocation outcome.
type Item struct {
	Kind   Kind
	Target module.Address
	Event  string
	Args   module.Args
	Meta   module.Metadata

	// Reply releases a caller parked in the thread bridge. Nil for
	// fire-and-forget items.
	Reply chan Result

	// seq is assigned under the queue lock at insertion.
	seq uint64
}

// NewTask builds a fire-and-forget deferred call.
func NewTask(target module.Address, args module.Args, meta module.Metadata) *Item {
	return &Item{Kind: KindTask, Target: target, Args: args, Meta: meta}
}

// NewCall builds a deferred call carrying a one-shot reply slot for a
// blocked synchronous caller.
func NewCall(target module.Address, args module.Args, meta module.Metadata) *Item {
	return &Item{
		Kind:   KindTask,
		Target: target,
		Args:   args,
		Meta:   meta,
		Reply:  make(chan Result, 1),
	}
}

// NewEvent builds a deferred event broadcast.
func NewEvent(event string, args module.Args, meta module.Metadata) *Item {
	return &Item{Kind: KindEvent, Event: event, Args: args, Meta: meta}
}

// Seq returns the arrival sequence assigned at insertion. Zero until the
// item has been accepted by a queue.
func (it *Item) Seq() uint64 {
	return it.seq
}

// less orders items by priority, then arrival.
func (it *Item) less(other *Item) bool {
	if it.Meta.Priority != other.Meta.Priority {
		return it.Meta.Priority < other.Meta.Priority
	}
	return it.seq < other.seq
}
