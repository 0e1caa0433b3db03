package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dshills/modkit/internal/dispatch"
	"github.com/dshills/modkit/internal/module"
	"github.com/dshills/modkit/internal/queue"
	"github.com/dshills/modkit/internal/registry"
)

// Manager owns a registry, a priority queue, and the dispatch loop, and
// exposes them behind the module.Broker interface. It is safe for
// concurrent use.
type Manager struct {
	log    *slog.Logger
	reg    *registry.Registry
	q      *queue.Queue
	disp   *dispatch.Dispatcher
	policy ShutdownPolicy

	state atomic.Int32

	mu          sync.Mutex // serializes Start against the stop sequence
	loopStarted bool
	loopErr     error
	loopDone    chan struct{}

	started   []module.Module // completed Startup, in registration order
	activated []module.Module // completed Activate, in registration order

	stopOnce sync.Once
	stopErr  error
	stopped  chan struct{}
}

// New builds an idle manager. Modules are added with Register before Start.
func New(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		log:      o.logger,
		reg:      registry.New(),
		policy:   o.policy,
		loopDone: make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	var qopts []queue.Option
	if o.capacity > 0 {
		qopts = append(qopts, queue.WithCapacity(o.capacity))
	}
	m.q = queue.New(qopts...)

	dopts := []dispatch.Option{
		dispatch.WithLogger(o.logger),
		dispatch.WithErrorPolicy(o.errPolicy),
	}
	if o.errFunc != nil {
		dopts = append(dopts, dispatch.WithErrorFunc(o.errFunc))
	}
	if o.idleFunc != nil {
		dopts = append(dopts, dispatch.WithIdleFunc(o.idleFunc))
	}
	m.disp = dispatch.New(m.reg, m.q, dopts...)

	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Register adds a module. Only permitted before Start; the method table is
// built here so registration failures surface immediately.
func (m *Manager) Register(mod module.Module) error {
	if m.State() != StateCreated {
		return ErrAlreadyStarted
	}
	return m.reg.Register(mod)
}

// Unregister removes a module by name during the Stopping phase, for
// modules that tear down early. Removing a module while the loop is live
// would race with delivery, so any other state fails with ErrNotStopping.
// Unknown names are a no-op.
func (m *Manager) Unregister(name string) error {
	if m.State() != StateStopping {
		return ErrNotStopping
	}
	m.reg.Unregister(name)
	return nil
}

// Start launches the dispatch loop and brings every registered module up:
// Startup hooks first, in registration order, then Activate hooks. If any
// hook fails, modules already brought up are torn down in reverse and
// Start returns a *StartupError. The context is handed to the loop and to
// the hooks.
func (m *Manager) Start(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	m.mu.Lock()
	m.log.Info("manager starting", "modules", m.reg.Len())

	m.loopStarted = true
	go func() {
		m.loopErr = m.disp.Run(ctx)
		close(m.loopDone)
		if m.loopErr != nil {
			// Loop died on its own (propagate policy). Unwind the
			// modules so Wait observes the failure.
			go func() { _ = m.Stop(context.Background()) }()
		}
	}()

	var failed *StartupError
	for _, mod := range m.reg.Modules() {
		s, ok := mod.(module.Starter)
		if ok {
			if err := s.Startup(ctx); err != nil {
				failed = &StartupError{Module: mod.Name(), Phase: "startup", Err: err}
				break
			}
		}
		m.started = append(m.started, mod)
	}

	if failed == nil {
		for _, mod := range m.reg.Modules() {
			a, ok := mod.(module.Activator)
			if !ok {
				m.activated = append(m.activated, mod)
				continue
			}
			if err := a.Activate(ctx); err != nil {
				failed = &StartupError{Module: mod.Name(), Phase: "activate", Err: err}
				break
			}
			m.activated = append(m.activated, mod)
		}
	}

	if failed == nil {
		m.state.Store(int32(StateActive))
		m.mu.Unlock()
		m.log.Info("manager active")
		return nil
	}

	m.mu.Unlock()
	m.log.Error("manager startup failed", "module", failed.Module, "phase", failed.Phase, "error", failed.Err)
	m.stopOnce.Do(func() { m.doShutdown(ctx) })
	<-m.stopped
	return failed
}

// Stop runs the teardown sequence: Deactivate hooks in reverse, queue
// resolution per the shutdown policy, loop exit, then Shutdown hooks in
// reverse. Concurrent calls collapse into one transition; every caller
// blocks until teardown completes and receives the same result. The
// context bounds how long Stop waits for a drain; on expiry the remaining
// items are discarded.
//
// Stop must not be called from inside a dispatched handler; it waits for
// the loop to exit. Handlers use RequestStop instead.
func (m *Manager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() { m.doShutdown(ctx) })
	<-m.stopped
	return m.stopErr
}

// RequestStop begins teardown without blocking. Safe to call from a
// dispatched handler.
func (m *Manager) RequestStop() {
	go func() { _ = m.Stop(context.Background()) }()
}

// Wait blocks until the manager reaches Stopped and returns the terminal
// error, if any.
func (m *Manager) Wait() error {
	<-m.stopped
	return m.stopErr
}

// doShutdown executes the single teardown pass. Callers must route through
// stopOnce.
func (m *Manager) doShutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Store(int32(StateStopping))
	m.log.Info("manager stopping", "policy", m.policy.String(), "queued", m.q.Len())

	for i := len(m.activated) - 1; i >= 0; i-- {
		d, ok := m.activated[i].(module.Deactivator)
		if !ok {
			continue
		}
		if err := d.Deactivate(ctx); err != nil {
			m.log.Error("deactivate failed", "module", m.activated[i].Name(), "error", err)
		}
	}

	// Stop admission, then settle queued work per policy.
	m.q.Close()
	if m.policy == PolicyDiscard {
		leftovers := m.q.Drain()
		m.disp.FailPending(leftovers)
		m.disp.InitiateShutdown()
		if len(leftovers) > 0 {
			m.log.Info("discarded queued items", "count", len(leftovers))
		}
	}

	if m.loopStarted {
		select {
		case <-m.loopDone:
		case <-ctx.Done():
			// Drain deadline hit; abandon the remainder.
			leftovers := m.q.Drain()
			m.disp.FailPending(leftovers)
			m.disp.InitiateShutdown()
			m.log.Warn("drain deadline exceeded, discarding remainder", "count", len(leftovers))
			<-m.loopDone
		}
	}
	m.disp.InitiateShutdown()

	for i := len(m.started) - 1; i >= 0; i-- {
		s, ok := m.started[i].(module.Stopper)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			m.log.Error("shutdown failed", "module", m.started[i].Name(), "error", err)
		}
	}

	m.reg.Clear()
	m.stopErr = m.loopErr
	m.state.Store(int32(StateStopped))
	m.log.Info("manager stopped")
	close(m.stopped)
}

// Stats returns a snapshot of dispatch counters.
func (m *Manager) Stats() dispatch.Stats {
	return m.disp.Stats()
}

// QueueLen reports the number of items currently queued.
func (m *Manager) QueueLen() int {
	return m.q.Len()
}

// Exec invokes target directly on the caller's goroutine.
func (m *Manager) Exec(ctx context.Context, target string, args module.Args, opts ...module.CallOption) (any, error) {
	return m.disp.Exec(ctx, target, args, module.NewMetadata(opts...))
}

// ExecSync queues a call and blocks until the loop produces its result.
// Safe to call from dispatched handlers; recursion is detected and the
// call runs inline.
func (m *Manager) ExecSync(ctx context.Context, target string, args module.Args, opts ...module.CallOption) (any, error) {
	return m.disp.ExecSync(ctx, target, args, module.NewMetadata(opts...))
}

// Enqueue schedules target for asynchronous execution. The target is
// validated before admission.
func (m *Manager) Enqueue(target string, args module.Args, opts ...module.CallOption) error {
	err := m.disp.Enqueue(target, args, module.NewMetadata(opts...))
	if errors.Is(err, queue.ErrClosed) {
		return dispatch.ErrShutdown
	}
	return err
}

// Trigger publishes an event to every subscribed module except the source.
func (m *Manager) Trigger(event string, args module.Args, opts ...module.CallOption) error {
	err := m.disp.Trigger(event, args, module.NewMetadata(opts...))
	if errors.Is(err, queue.ErrClosed) {
		return dispatch.ErrShutdown
	}
	return err
}

var _ module.Broker = (*Manager)(nil)
