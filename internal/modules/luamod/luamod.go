package luamod

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modkit/internal/module"
)

// Module hosts one Lua script as an addressable module. Methods the script
// registers before manager registration become wire methods; the script's
// top-level code is its startup.
//
// All Lua execution holds the module mutex, so a script must not call its
// own methods through the broker.
type Module struct {
	name   string
	broker module.Broker
	log    *slog.Logger

	mu  sync.Mutex
	L   *lua.LState
	ctx context.Context // context of the in-flight invocation
	fns map[string]*lua.LFunction
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger exposed to the script via modkit.log.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a Lua module named name. The broker is what modkit.call,
// modkit.enqueue, and modkit.trigger reach through.
func New(name string, broker module.Broker, opts ...Option) *Module {
	m := &Module{
		name:   name,
		broker: broker,
		log:    slog.Default(),
		fns:    map[string]*lua.LFunction{},
	}
	for _, opt := range opts {
		opt(m)
	}

	L := lua.NewState()
	m.L = L

	api := L.NewTable()
	L.SetField(api, "register", L.NewFunction(m.apiRegister))
	L.SetField(api, "call", L.NewFunction(m.apiCall))
	L.SetField(api, "enqueue", L.NewFunction(m.apiEnqueue))
	L.SetField(api, "trigger", L.NewFunction(m.apiTrigger))
	L.SetField(api, "log", L.NewFunction(m.apiLog))
	L.SetField(api, "name", lua.LString(name))
	L.SetGlobal("modkit", api)

	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return m.name }

// LoadFile runs a script file. Methods must be registered here, before the
// module is handed to a manager; later registrations are not visible.
func (m *Module) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.L.DoFile(path); err != nil {
		return fmt.Errorf("luamod: %s: load %s: %w", m.name, path, err)
	}
	return nil
}

// LoadString runs an inline script.
func (m *Module) LoadString(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.L.DoString(src); err != nil {
		return fmt.Errorf("luamod: %s: load script: %w", m.name, err)
	}
	return nil
}

// ModuleMethods exposes the script's registered functions as wire methods.
func (m *Module) ModuleMethods() map[string]module.Func {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]module.Func, len(m.fns))
	for name := range m.fns {
		out[name] = m.invoke(name)
	}
	return out
}

// Shutdown runs the script's shutdown function when one was registered,
// then closes the Lua state.
func (m *Module) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn := m.fns["shutdown"]; fn != nil {
		err := m.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
		if err != nil {
			m.log.Error("lua shutdown function failed", "module", m.name, "error", err)
		}
	}
	m.L.Close()
	return nil
}

func (m *Module) invoke(name string) module.Func {
	return func(ctx context.Context, call *module.Call) (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		fn := m.fns[name]
		if fn == nil {
			return nil, fmt.Errorf("luamod: %s: method %s gone", m.name, name)
		}

		m.ctx = ctx
		defer func() { m.ctx = nil }()

		err := m.L.CallByParam(
			lua.P{Fn: fn, NRet: 1, Protect: true},
			toLua(m.L, map[string]any(call.Args)),
		)
		if err != nil {
			return nil, fmt.Errorf("luamod: %s.%s: %w", m.name, name, err)
		}
		ret := m.L.Get(-1)
		m.L.Pop(1)
		return fromLua(ret), nil
	}
}

// The api* functions run inside a Lua call, which already holds m.mu.

func (m *Module) apiRegister(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	m.fns[name] = fn
	return 0
}

func (m *Module) apiCall(L *lua.LState) int {
	target := L.CheckString(1)
	args := argsFrom(L.Get(2))

	res, err := m.broker.ExecSync(m.callCtx(), target, args, module.WithSource(m.name))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(toLua(L, res))
	L.Push(lua.LNil)
	return 2
}

func (m *Module) apiEnqueue(L *lua.LState) int {
	target := L.CheckString(1)
	args := argsFrom(L.Get(2))
	opts := []module.CallOption{module.WithSource(m.name)}
	if n := L.OptInt(3, 0); n != 0 {
		opts = append(opts, module.WithPriority(module.Priority(n)))
	}

	if err := m.broker.Enqueue(target, args, opts...); err != nil {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

func (m *Module) apiTrigger(L *lua.LState) int {
	event := L.CheckString(1)
	args := argsFrom(L.Get(2))

	if err := m.broker.Trigger(event, args, module.WithSource(m.name)); err != nil {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

func (m *Module) apiLog(L *lua.LState) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)
	log := m.log.With("module", m.name)
	switch level {
	case "debug":
		log.Debug(msg)
	case "warn":
		log.Warn(msg)
	case "error":
		log.Error(msg)
	default:
		log.Info(msg)
	}
	return 0
}

func (m *Module) callCtx() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}

func argsFrom(lv lua.LValue) module.Args {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil
	}
	v, ok := tableToGo(t).(map[string]any)
	if !ok {
		return nil
	}
	return module.Args(v)
}
