// Package manager wires the registry, priority queue, and dispatcher into
// a single addressable unit and drives module lifecycle:
//
//	Created → Starting → Active → Stopping → Stopped
//
// Transitions are monotonic and each phase completes across all registered
// modules before the next begins. Startup hooks run in registration order,
// teardown hooks in reverse. Concurrent stop requests collapse into a
// single transition.
//
// Every manager is self-contained; independent managers coexist freely in
// one process.
package manager
