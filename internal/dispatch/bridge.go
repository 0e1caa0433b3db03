package dispatch

import (
	"context"
	"errors"

	"github.com/dshills/modkit/internal/module"
	"github.com/dshills/modkit/internal/queue"
)

// ExecSync is the thread bridge: it lets any goroutine make a blocking
// synchronous call into the loop's execution context. The call is queued
// with a one-shot reply slot and the caller parks until the loop produces
// a result or failure, which then propagates unchanged.
//
// A caller already on the loop (its ctx carries the loop marker) executes
// inline instead of round-tripping, so same-context calls cannot deadlock.
// Once shutdown has been initiated the call fails fast with ErrShutdown,
// and callers already parked are released with ErrShutdown.
func (d *Dispatcher) ExecSync(ctx context.Context, target string, args module.Args, meta module.Metadata) (any, error) {
	if onLoop(ctx, d) {
		return d.Exec(ctx, target, args, meta)
	}

	select {
	case <-d.shutdown:
		return nil, ErrShutdown
	default:
	}

	addr, err := module.ParseAddress(target)
	if err != nil {
		return nil, err
	}
	if _, err := d.reg.Resolve(addr); err != nil {
		return nil, err
	}

	it := queue.NewCall(addr, args, meta)
	if err := d.q.Put(it); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return nil, ErrShutdown
		}
		return nil, err
	}

	select {
	case r := <-it.Reply:
		return r.Value, r.Err
	case <-d.shutdown:
		// A drained call may have produced its result in the same
		// instant; prefer it over the shutdown error.
		select {
		case r := <-it.Reply:
			return r.Value, r.Err
		default:
		}
		return nil, ErrShutdown
	case <-ctx.Done():
		select {
		case r := <-it.Reply:
			return r.Value, r.Err
		default:
		}
		return nil, ctx.Err()
	}
}

// InitiateShutdown releases every parked bridged caller with ErrShutdown
// and makes further ExecSync calls fail fast. Idempotent. Under the drain
// policy the manager calls this only after the loop has finished the
// remaining items, so drained bridged calls still receive their results.
func (d *Dispatcher) InitiateShutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
	})
}

// FailPending resolves discarded queue items: bridged callers receive
// ErrShutdown instead of waiting on work that will never run.
func (d *Dispatcher) FailPending(items []*queue.Item) {
	for _, it := range items {
		if it.Reply != nil {
			it.Reply <- queue.Result{Err: ErrShutdown}
		}
	}
}
