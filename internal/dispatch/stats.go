package dispatch

import "sync/atomic"

// Stats is a consistent-enough snapshot of the dispatcher's counters.
type Stats struct {
	// Items is the number of queue items fully processed by the loop.
	Items uint64
	// Tasks and Events split Items by kind.
	Tasks  uint64
	Events uint64
	// Execs counts immediate (non-queued) invocations, including bridged
	// calls that ran inline on the loop.
	Execs uint64
	// Handlers counts individual event-handler invocations.
	Handlers uint64
	// Failed counts routed invocation failures.
	Failed uint64
	// IdleFired counts idle transitions.
	IdleFired uint64
}

// counters is the live atomic backing for Stats.
type counters struct {
	items     atomic.Uint64
	tasks     atomic.Uint64
	events    atomic.Uint64
	execs     atomic.Uint64
	handlers  atomic.Uint64
	failed    atomic.Uint64
	idleFired atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Items:     c.items.Load(),
		Tasks:     c.tasks.Load(),
		Events:    c.events.Load(),
		Execs:     c.execs.Load(),
		Handlers:  c.handlers.Load(),
		Failed:    c.failed.Load(),
		IdleFired: c.idleFired.Load(),
	}
}
