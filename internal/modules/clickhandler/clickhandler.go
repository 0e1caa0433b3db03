// Package clickhandler turns raw button transitions into gestures. It
// subscribes to press and release events and publishes one of:
//
//	button_click   — press released before the hold threshold
//	button_double  — two clicks inside the double-click window
//	button_hold    — press held past the hold threshold
//
// A click is withheld for the double-click window before publishing, so a
// double never also reports its first click.
package clickhandler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/modkit/internal/module"
)

// Published gesture events.
const (
	EventClick  = "button_click"
	EventDouble = "button_double"
	EventHold   = "button_hold"
)

// Module classifies transitions per line. Timers fire on their own
// goroutines and publish through the thread-safe broker surface.
type Module struct {
	name   string
	broker module.Broker
	log    *slog.Logger

	holdAfter    time.Duration
	doubleWindow time.Duration

	mu    sync.Mutex
	lines map[string]*lineState
}

type lineState struct {
	pressed    bool
	holdFired  bool
	holdTimer  *time.Timer
	clickTimer *time.Timer // pending single click
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

// WithHoldThreshold sets how long a press must last to become a hold.
// Default 1s.
func WithHoldThreshold(d time.Duration) Option {
	return func(m *Module) {
		if d > 0 {
			m.holdAfter = d
		}
	}
}

// WithDoubleWindow sets the gap within which a second click becomes a
// double. Default 300ms.
func WithDoubleWindow(d time.Duration) Option {
	return func(m *Module) {
		if d > 0 {
			m.doubleWindow = d
		}
	}
}

// New creates a gesture classifier.
func New(name string, broker module.Broker, opts ...Option) *Module {
	m := &Module{
		name:         name,
		broker:       broker,
		log:          slog.Default(),
		holdAfter:    time.Second,
		doubleWindow: 300 * time.Millisecond,
		lines:        map[string]*lineState{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return m.name }

// Shutdown cancels in-flight timers. Press state is abandoned.
func (m *Module) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.lines {
		if st.holdTimer != nil {
			st.holdTimer.Stop()
		}
		if st.clickTimer != nil {
			st.clickTimer.Stop()
		}
	}
	m.lines = map[string]*lineState{}
	return nil
}

// OnButtonPressed starts gesture tracking for the line.
func (m *Module) OnButtonPressed(_ context.Context, call *module.Call) (any, error) {
	line := call.Args.String("line", "")
	if line == "" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state(line)
	if st.pressed {
		return nil, nil
	}
	st.pressed = true
	st.holdFired = false
	st.holdTimer = time.AfterFunc(m.holdAfter, func() { m.fireHold(line) })
	return nil, nil
}

// OnButtonReleased resolves the press into a click, a double, or nothing
// when the hold already fired.
func (m *Module) OnButtonReleased(_ context.Context, call *module.Call) (any, error) {
	line := call.Args.String("line", "")
	if line == "" {
		return nil, nil
	}

	m.mu.Lock()
	st := m.state(line)
	if !st.pressed {
		m.mu.Unlock()
		return nil, nil
	}
	st.pressed = false
	if st.holdTimer != nil {
		st.holdTimer.Stop()
		st.holdTimer = nil
	}
	if st.holdFired {
		st.holdFired = false
		m.mu.Unlock()
		return nil, nil
	}

	if st.clickTimer != nil {
		// Second click inside the window.
		st.clickTimer.Stop()
		st.clickTimer = nil
		m.mu.Unlock()
		return nil, m.publish(EventDouble, line)
	}

	st.clickTimer = time.AfterFunc(m.doubleWindow, func() { m.fireClick(line) })
	m.mu.Unlock()
	return nil, nil
}

func (m *Module) state(line string) *lineState {
	st, ok := m.lines[line]
	if !ok {
		st = &lineState{}
		m.lines[line] = st
	}
	return st
}

func (m *Module) fireHold(line string) {
	m.mu.Lock()
	st := m.state(line)
	if !st.pressed {
		m.mu.Unlock()
		return
	}
	st.holdFired = true
	m.mu.Unlock()

	if err := m.publish(EventHold, line); err != nil {
		m.log.Error("hold publish failed", "line", line, "error", err)
	}
}

func (m *Module) fireClick(line string) {
	m.mu.Lock()
	st := m.state(line)
	if st.clickTimer == nil {
		m.mu.Unlock()
		return
	}
	st.clickTimer = nil
	m.mu.Unlock()

	if err := m.publish(EventClick, line); err != nil {
		m.log.Error("click publish failed", "line", line, "error", err)
	}
}

func (m *Module) publish(event, line string) error {
	return m.broker.Trigger(event, module.Args{"line": line}, module.WithSource(m.name))
}
