package dispatch

// IdleEvent is broadcast directly (never queued) each time the loop drains
// the queue with nothing left to do.
const IdleEvent = "becoming_idle"

// idleNotifier latches idle transitions. Only the loop goroutine touches
// it, so no locking is needed.
//
// The notification fires when, at the instant of the check after an item
// completes, the consumer is caught up. It then stays quiet until at least
// one further item has been fully processed. A put landing between the
// take and the check keeps the queue non-empty at check time and therefore
// suppresses the firing.
type idleNotifier struct {
	pending bool
}

// markProcessed records that an item completed, arming the notifier.
func (n *idleNotifier) markProcessed() {
	n.pending = true
}

// fire reports whether an idle notification is due, consuming the latch.
func (n *idleNotifier) fire() bool {
	if !n.pending {
		return false
	}
	n.pending = false
	return true
}
