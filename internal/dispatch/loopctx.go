package dispatch

import "context"

// loopKey marks contexts derived from a dispatcher's loop goroutine. The
// value is the owning *Dispatcher so nested managers never cross-match.
type loopKey struct{}

// withLoop stamps a context as belonging to this dispatcher's main context.
func withLoop(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, loopKey{}, d)
}

// onLoop reports whether ctx was issued by this dispatcher's loop. Callers
// on the loop execute bridged calls inline instead of round-tripping, which
// would deadlock the single consumer.
func onLoop(ctx context.Context, d *Dispatcher) bool {
	owner, _ := ctx.Value(loopKey{}).(*Dispatcher)
	return owner == d
}
