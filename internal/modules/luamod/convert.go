package luamod

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go value into a Lua value on L. Unsupported kinds
// convert to their string form rather than failing mid-call.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, elem := range val {
			t.RawSetInt(i+1, toLua(L, elem))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, elem := range val {
			t.RawSetString(k, toLua(L, elem))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// fromLua converts a Lua value into a Go value. Numbers with no fraction
// become int64. Tables with contiguous 1-based integer keys become slices,
// anything else becomes a map. Functions and userdata drop to nil.
func fromLua(lv lua.LValue) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable) any {
	maxN := 0
	isArray := true
	t.ForEach(func(k, _ lua.LValue) {
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			isArray = false
			return
		}
		if int(kn) > maxN {
			maxN = int(kn)
		}
	})
	if isArray && maxN > 0 {
		n := 0
		t.ForEach(func(_, _ lua.LValue) { n++ })
		if n == maxN {
			out := make([]any, maxN)
			for i := 1; i <= maxN; i++ {
				out[i-1] = fromLua(t.RawGetInt(i))
			}
			return out
		}
	}

	out := map[string]any{}
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLua(v)
	})
	return out
}
