package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/dshills/modkit/internal/module"
	"github.com/dshills/modkit/internal/queue"
	"github.com/dshills/modkit/internal/registry"
)

// Dispatcher owns the single-consumer loop and the three call styles:
// immediate (Exec), deferred task (Enqueue), and deferred broadcast
// (Trigger). The thread bridge lives in bridge.go.
type Dispatcher struct {
	reg *registry.Registry
	q   *queue.Queue
	log *slog.Logger

	policy ErrorPolicy
	errFn  func(*InvocationError)
	idleFn func()

	idle  idleNotifier
	stats counters

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New creates a dispatcher draining q against the modules in reg.
func New(reg *registry.Registry, q *queue.Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:      reg,
		q:        q,
		log:      slog.Default(),
		shutdown: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the dispatch loop on the calling goroutine, which becomes
// the main context. It returns nil after the queue is closed and (per the
// drain discipline) emptied, or the routed failure under
// ErrorPolicyPropagate. Per-item failures never terminate the loop
// otherwise.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx = withLoop(ctx, d)

	for {
		it, err := d.q.Take()
		if err != nil {
			// Closed and drained; orderly exit.
			return nil
		}

		if err := d.process(ctx, it); err != nil {
			return err
		}

		d.stats.items.Add(1)
		d.idle.markProcessed()
		if d.q.IsEmpty() {
			d.fireIdle(ctx)
		}
	}
}

// process resolves and invokes one queue item. The returned error is
// non-nil only under ErrorPolicyPropagate.
func (d *Dispatcher) process(ctx context.Context, it *queue.Item) error {
	switch it.Kind {
	case queue.KindTask:
		d.stats.tasks.Add(1)
		v, err := d.call(ctx, it.Target, it.Args, it.Meta)
		if it.Reply != nil {
			// One-shot slot, capacity 1: never blocks the loop. The
			// bridged caller owns the failure; it is not routed here.
			it.Reply <- queue.Result{Value: v, Err: err}
			return nil
		}
		if err != nil {
			return d.route(&InvocationError{Target: it.Target.String(), Meta: it.Meta, Err: err})
		}
		return nil

	case queue.KindEvent:
		d.stats.events.Add(1)
		return d.broadcast(ctx, it.Event, it.Args, it.Meta)

	default:
		d.log.Warn("dropping queue item of unknown kind", "kind", int(it.Kind))
		return nil
	}
}

// Exec resolves and invokes a target immediately, in the caller's own
// execution context. The callee's result or failure propagates unchanged.
// Intended for callers already on the loop; foreign goroutines use
// ExecSync.
func (d *Dispatcher) Exec(ctx context.Context, target string, args module.Args, meta module.Metadata) (any, error) {
	addr, err := module.ParseAddress(target)
	if err != nil {
		return nil, err
	}
	d.stats.execs.Add(1)
	return d.call(ctx, addr, args, meta)
}

// Enqueue validates the target and queues a fire-and-forget task.
// Resolution errors surface synchronously; execution errors are routed by
// the loop later.
func (d *Dispatcher) Enqueue(target string, args module.Args, meta module.Metadata) error {
	// Checked before resolution: after teardown the registry is empty and
	// an unknown-module error would mask the real condition.
	if d.q.Closed() {
		return ErrShutdown
	}
	addr, err := module.ParseAddress(target)
	if err != nil {
		return err
	}
	if _, err := d.reg.Resolve(addr); err != nil {
		return err
	}
	return d.q.Put(queue.NewTask(addr, args, meta))
}

// Trigger queues an event broadcast. The receiving handler set is resolved
// at dispatch time, not now.
func (d *Dispatcher) Trigger(event string, args module.Args, meta module.Metadata) error {
	if event == "" {
		return ErrEmptyEvent
	}
	return d.q.Put(queue.NewEvent(event, args, meta))
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}

// call resolves an address and invokes it with panic isolation.
func (d *Dispatcher) call(ctx context.Context, addr module.Address, args module.Args, meta module.Metadata) (any, error) {
	fn, err := d.reg.Resolve(addr)
	if err != nil {
		return nil, err
	}
	return invoke(ctx, fn, &module.Call{Args: args, Meta: meta})
}

// broadcast delivers an event to every module currently exposing a
// handler, each invoked independently: a failure is routed and the
// remaining handlers still run. The event is not delivered back to its
// source module.
func (d *Dispatcher) broadcast(ctx context.Context, event string, args module.Args, meta module.Metadata) error {
	wireName := module.EventHandlerName(event)
	for _, h := range d.reg.EventHandlers(event) {
		if meta.Source != "" && h.Module == meta.Source {
			continue
		}
		d.stats.handlers.Add(1)
		if _, err := invoke(ctx, h.Fn, &module.Call{Args: args, Meta: meta}); err != nil {
			ie := &InvocationError{Target: h.Module + "." + wireName, Meta: meta, Err: err}
			if perr := d.route(ie); perr != nil {
				return perr
			}
		}
	}
	return nil
}

// route applies the configured error policy. The returned error is non-nil
// only for ErrorPolicyPropagate.
func (d *Dispatcher) route(ie *InvocationError) error {
	d.stats.failed.Add(1)

	switch d.policy {
	case ErrorPolicyForward:
		if d.errFn != nil {
			d.errFn(ie)
			return nil
		}
	case ErrorPolicyPropagate:
		return ie
	}

	d.log.Error("invocation failed",
		"target", ie.Target,
		"transaction", ie.Meta.Transaction,
		"source", ie.Meta.Source,
		"error", ie.Err)
	return nil
}

// fireIdle emits the latched idle notification: a direct (non-queued)
// becoming_idle broadcast plus the optional callback.
func (d *Dispatcher) fireIdle(ctx context.Context) {
	if !d.idle.fire() {
		return
	}
	d.stats.idleFired.Add(1)

	meta := module.NewMetadata(module.WithPriority(module.PriorityHighest))
	if err := d.broadcast(ctx, IdleEvent, nil, meta); err != nil {
		d.log.Error("idle broadcast failed", "error", err)
	}
	if d.idleFn != nil {
		d.idleFn()
	}
}

// invoke runs a bound callable, converting a panic into an error so a
// failing module never kills the loop goroutine.
func invoke(ctx context.Context, fn module.Func, call *module.Call) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return fn(ctx, call)
}
