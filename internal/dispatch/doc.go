// Package dispatch implements the single-consumer loop that drains the
// priority queue and invokes resolved targets, the immediate (non-queued)
// synchronous call path, and the thread bridge that lets arbitrary
// goroutines schedule work onto the loop and optionally block for a result.
//
// Exactly one goroutine runs the loop (the "main context"); everything
// taken from the queue executes there. Failures inside dispatched items are
// isolated per item, wrapped as *InvocationError, and routed per the
// configured policy without terminating the loop. When the loop catches up
// with the queue it fires a latched idle notification and broadcasts the
// "becoming_idle" event directly, without re-queuing.
package dispatch
