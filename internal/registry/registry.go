package registry

import (
	"fmt"
	"sync"

	"github.com/dshills/modkit/internal/module"
)

// Registry maps module names to instances and their bound method tables.
// It preserves registration order for the lifecycle controller.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// entry binds a module instance to its wire-method lookup table.
type entry struct {
	mod     module.Module
	methods map[string]module.Func
}

// BoundHandler is an event handler bound to its owning module.
type BoundHandler struct {
	Module string
	Fn     module.Func
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds a module under its reported name, building its method table
// by reflection. It fails with ErrDuplicateName if the name is taken and
// ErrMethodCollision if two methods share a wire name.
func (r *Registry) Register(m module.Module) error {
	name := m.Name()
	if name == "" {
		return ErrEmptyName
	}

	methods, err := methodTable(m)
	if err != nil {
		return fmt.Errorf("module %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.entries[name] = &entry{mod: m, methods: methods}
	r.order = append(r.order, name)
	return nil
}

// Unregister removes a module by name, reporting whether it was present.
// The manager only permits this during its shutdown phase.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return false
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Resolve returns the bound callable for an address. The lookup is pure;
// the error distinguishes a missing module from a missing method.
func (r *Registry) Resolve(addr module.Address) (module.Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[addr.Module]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, addr.Module)
	}
	fn, ok := e.methods[addr.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no %q", ErrUnknownMethod, addr.Module, addr.Method)
	}
	return fn, nil
}

// EventHandlers returns every module's handler for the given event, in
// registration order. The slice is a snapshot; registrations after the
// call do not affect it.
func (r *Registry) EventHandlers(event string) []BoundHandler {
	wireName := module.EventHandlerName(event)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var handlers []BoundHandler
	for _, name := range r.order {
		if fn, ok := r.entries[name].methods[wireName]; ok {
			handlers = append(handlers, BoundHandler{Module: name, Fn: fn})
		}
	}
	return handlers
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (module.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.mod, true
}

// Has reports whether a module is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered module names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]module.Module, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].mod)
	}
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear releases every entry. Used by the manager once shutdown completes.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
	r.order = nil
}
