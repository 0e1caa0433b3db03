package module

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned when a target string is not of the form
// "<modulename>.<methodname>" with both parts non-empty.
var ErrInvalidAddress = errors.New("module: invalid address")

// Address identifies a single wire method: the pair of a module name and a
// method name. Addresses are immutable values.
type Address struct {
	Module string
	Method string
}

// ParseAddress splits a dotted "module.method" target. The first dot is the
// separator; both parts must be non-empty. Matching is case-sensitive.
func ParseAddress(target string) (Address, error) {
	mod, method, found := strings.Cut(target, ".")
	if !found || mod == "" || method == "" {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, target)
	}
	return Address{Module: mod, Method: method}, nil
}

// String returns the dotted form of the address.
func (a Address) String() string {
	return a.Module + "." + a.Method
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a.Module == "" && a.Method == ""
}
