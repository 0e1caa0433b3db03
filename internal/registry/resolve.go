package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dshills/modkit/internal/module"
)

// methodTable builds the wire-name lookup table for a module. Exported Go
// methods with the canonical Func signature are bound under their
// snake_case names; modules implementing MethodProvider contribute dynamic
// methods on top. Reflection happens only here, once per registration.
func methodTable(m module.Module) (map[string]module.Func, error) {
	table := make(map[string]module.Func)

	rv := reflect.ValueOf(m)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		goName := rt.Method(i).Name
		fn, ok := rv.Method(i).Interface().(func(context.Context, *module.Call) (any, error))
		if !ok {
			continue
		}
		wireName := module.WireName(goName)
		if _, dup := table[wireName]; dup {
			return nil, fmt.Errorf("%w: %q", ErrMethodCollision, wireName)
		}
		table[wireName] = fn
	}

	if p, ok := m.(module.MethodProvider); ok {
		for wireName, fn := range p.ModuleMethods() {
			if wireName == "" || fn == nil {
				continue
			}
			if _, dup := table[wireName]; dup {
				return nil, fmt.Errorf("%w: %q", ErrMethodCollision, wireName)
			}
			table[wireName] = fn
		}
	}

	return table, nil
}
