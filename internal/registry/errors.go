package registry

import "errors"

// Registry errors.
var (
	// ErrDuplicateName indicates a module name is already registered.
	ErrDuplicateName = errors.New("registry: duplicate module name")

	// ErrUnknownModule indicates an address names a module that is not
	// registered.
	ErrUnknownModule = errors.New("registry: unknown module")

	// ErrUnknownMethod indicates an address names a method the module does
	// not expose.
	ErrUnknownMethod = errors.New("registry: unknown method")

	// ErrMethodCollision indicates two methods of one module map to the
	// same wire name.
	ErrMethodCollision = errors.New("registry: wire method collision")

	// ErrEmptyName indicates a module reported an empty name.
	ErrEmptyName = errors.New("registry: empty module name")
)
