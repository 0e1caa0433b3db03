package module

import "context"

// Module is the minimal contract for a unit participating in the call and
// event system. A module is created before registration and released only
// after the manager's shutdown phase completes.
type Module interface {
	// Name returns the module's registered name. It must be stable for the
	// module's lifetime and unique within a manager.
	Name() string
}

// Func is the canonical callable signature for wire methods and event
// handlers. Implementations run on the dispatch loop unless invoked through
// the synchronous bridge from the loop itself; blocking work belongs on a
// module-owned goroutine that talks back through the thread-safe API.
type Func func(ctx context.Context, call *Call) (any, error)

// Starter is implemented by modules that need a startup hook. Startup hooks
// run in registration order; a failure aborts the whole start sequence.
type Starter interface {
	Startup(ctx context.Context) error
}

// Activator is implemented by modules that begin initiating calls or events
// of their own once the system is fully started. Activate runs after every
// module's Startup has completed.
type Activator interface {
	Activate(ctx context.Context) error
}

// Deactivator is the inverse of Activator. Deactivate hooks run in reverse
// registration order at the beginning of shutdown, before the queue is
// resolved.
type Deactivator interface {
	Deactivate(ctx context.Context) error
}

// Stopper is implemented by modules that need a teardown hook. Shutdown
// hooks run in reverse registration order after the dispatch loop has
// terminated.
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// MethodProvider is implemented by modules whose method set is not
// expressible as Go methods (scripted modules, generated adapters). The
// returned map is merged with the reflected method table at registration;
// wire-name collisions are a registration error.
type MethodProvider interface {
	ModuleMethods() map[string]Func
}

// Broker is the call and event surface handed to modules so they can reach
// the rest of the system. Enqueue and Trigger are safe from any goroutine.
// Exec must only be used on the dispatch loop; ExecSync is safe anywhere
// and executes inline when the caller is already on the loop.
type Broker interface {
	Exec(ctx context.Context, target string, args Args, opts ...CallOption) (any, error)
	ExecSync(ctx context.Context, target string, args Args, opts ...CallOption) (any, error)
	Enqueue(target string, args Args, opts ...CallOption) error
	Trigger(event string, args Args, opts ...CallOption) error
}
