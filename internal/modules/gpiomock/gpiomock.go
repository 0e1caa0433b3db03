// Package gpiomock simulates GPIO input lines for development without
// hardware. Press and release transitions publish button events; pulse
// schedules the release from a timer goroutine, reaching the dispatcher
// through the thread-safe broker surface.
package gpiomock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/modkit/internal/module"
)

// Events published on line transitions.
const (
	EventPressed  = "button_pressed"
	EventReleased = "button_released"
)

// Module simulates a bank of named input lines.
type Module struct {
	name   string
	broker module.Broker
	log    *slog.Logger

	mu     sync.Mutex
	lines  map[string]bool // true while pressed
	timers []*time.Timer
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a simulated line bank. Only named lines accept transitions.
func New(name string, broker module.Broker, lines []string, opts ...Option) *Module {
	m := &Module{
		name:   name,
		broker: broker,
		log:    slog.Default(),
		lines:  make(map[string]bool, len(lines)),
	}
	for _, l := range lines {
		m.lines[l] = false
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return m.name }

// Shutdown stops outstanding pulse timers.
func (m *Module) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	return nil
}

// Press drives a line high. Already-pressed lines are a no-op, so repeat
// signals from bouncy sources do not double-publish.
func (m *Module) Press(_ context.Context, call *module.Call) (any, error) {
	return nil, m.transition(call.Args.String("line", ""), true)
}

// Release drives a line low.
func (m *Module) Release(_ context.Context, call *module.Call) (any, error) {
	return nil, m.transition(call.Args.String("line", ""), false)
}

// Pulse presses a line and schedules the release after the hold duration.
// The default hold is 50ms.
func (m *Module) Pulse(_ context.Context, call *module.Call) (any, error) {
	line := call.Args.String("line", "")
	hold := call.Args.Duration("hold", 50*time.Millisecond)

	if err := m.transition(line, true); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers = append(m.timers, time.AfterFunc(hold, func() {
		if err := m.transition(line, false); err != nil {
			m.log.Error("pulse release failed", "line", line, "error", err)
		}
	}))
	return nil, nil
}

// Read reports whether a line is currently pressed.
func (m *Module) Read(_ context.Context, call *module.Call) (any, error) {
	line := call.Args.String("line", "")
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.lines[line]
	if !ok {
		return nil, fmt.Errorf("gpiomock: %s: unknown line %q", m.name, line)
	}
	return state, nil
}

// Lines returns the configured line names.
func (m *Module) Lines(context.Context, *module.Call) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, 0, len(m.lines))
	for l := range m.lines {
		out = append(out, l)
	}
	return out, nil
}

func (m *Module) transition(line string, pressed bool) error {
	m.mu.Lock()
	state, ok := m.lines[line]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("gpiomock: %s: unknown line %q", m.name, line)
	}
	if state == pressed {
		m.mu.Unlock()
		return nil
	}
	m.lines[line] = pressed
	m.mu.Unlock()

	event := EventReleased
	if pressed {
		event = EventPressed
	}
	return m.broker.Trigger(event, module.Args{"line": line}, module.WithSource(m.name))
}
