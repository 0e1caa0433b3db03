package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dshills/modkit/internal/dispatch"
	"github.com/dshills/modkit/internal/module"
)

// journal collects lifecycle hook invocations across modules in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// hooked implements every lifecycle hook and records each firing. Hooks
// can be made to fail by phase name.
type hooked struct {
	name string
	j    *journal
	fail string
}

func (h *hooked) Name() string { return h.name }

func (h *hooked) hook(phase string) error {
	h.j.add(h.name + ":" + phase)
	if h.fail == phase {
		return errors.New(phase + " refused")
	}
	return nil
}

func (h *hooked) Startup(context.Context) error    { return h.hook("startup") }
func (h *hooked) Activate(context.Context) error   { return h.hook("activate") }
func (h *hooked) Deactivate(context.Context) error { return h.hook("deactivate") }
func (h *hooked) Shutdown(context.Context) error   { return h.hook("shutdown") }

// tally counts method invocations.
type tally struct {
	mu sync.Mutex
	n  int
}

func (t *tally) Name() string { return "tally" }

func (t *tally) Bump(context.Context, *module.Call) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	return t.n, nil
}

func (t *tally) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// gate blocks its Hold method until released, and signals entry.
type gate struct {
	entered  chan struct{}
	release  chan struct{}
	enterOne sync.Once
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) Name() string { return "gate" }

func (g *gate) Hold(context.Context, *module.Call) (any, error) {
	g.enterOne.Do(func() { close(g.entered) })
	<-g.release
	return nil, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T, mods []module.Module, opts ...Option) *Manager {
	t.Helper()
	m := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	for _, mod := range mods {
		if err := m.Register(mod); err != nil {
			t.Fatalf("Register(%s) failed: %v", mod.Name(), err)
		}
	}
	return m
}

func mustStop(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartRunsHooksInRegistrationOrder(t *testing.T) {
	j := &journal{}
	a := &hooked{name: "a", j: j}
	b := &hooked{name: "b", j: j}
	m := newManager(t, []module.Module{a, b})

	if got := m.State(); got != StateCreated {
		t.Fatalf("State before Start = %v, want created", got)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mustStop(t, m)

	if got := m.State(); got != StateActive {
		t.Errorf("State after Start = %v, want active", got)
	}
	want := []string{"a:startup", "b:startup", "a:activate", "b:activate"}
	got := j.all()
	if len(got) != len(want) {
		t.Fatalf("hook order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hook order = %v, want %v", got, want)
		}
	}
}

func TestStartTwiceFails(t *testing.T) {
	m := newManager(t, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mustStop(t, m)

	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStartupFailureTearsDownPrefix(t *testing.T) {
	j := &journal{}
	a := &hooked{name: "a", j: j}
	b := &hooked{name: "b", j: j, fail: "startup"}
	c := &hooked{name: "c", j: j}
	m := newManager(t, []module.Module{a, b, c})

	err := m.Start(context.Background())
	var serr *StartupError
	if !errors.As(err, &serr) {
		t.Fatalf("Start error = %v, want *StartupError", err)
	}
	if serr.Module != "b" || serr.Phase != "startup" {
		t.Errorf("StartupError = {%s %s}, want {b startup}", serr.Module, serr.Phase)
	}
	if got := m.State(); got != StateStopped {
		t.Errorf("State after failed Start = %v, want stopped", got)
	}

	// a started and must be shut down; c was never touched.
	want := []string{"a:startup", "b:startup", "a:shutdown"}
	got := j.all()
	if len(got) != len(want) {
		t.Fatalf("hooks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hooks = %v, want %v", got, want)
		}
	}
}

func TestActivateFailureDeactivatesPrefix(t *testing.T) {
	j := &journal{}
	a := &hooked{name: "a", j: j}
	b := &hooked{name: "b", j: j, fail: "activate"}
	m := newManager(t, []module.Module{a, b})

	err := m.Start(context.Background())
	var serr *StartupError
	if !errors.As(err, &serr) {
		t.Fatalf("Start error = %v, want *StartupError", err)
	}
	if serr.Module != "b" || serr.Phase != "activate" {
		t.Errorf("StartupError = {%s %s}, want {b activate}", serr.Module, serr.Phase)
	}

	want := []string{
		"a:startup", "b:startup",
		"a:activate", "b:activate",
		"a:deactivate",
		"b:shutdown", "a:shutdown",
	}
	got := j.all()
	if len(got) != len(want) {
		t.Fatalf("hooks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hooks = %v, want %v", got, want)
		}
	}
}

func TestStopRunsTeardownInReverse(t *testing.T) {
	j := &journal{}
	a := &hooked{name: "a", j: j}
	b := &hooked{name: "b", j: j}
	m := newManager(t, []module.Module{a, b})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mustStop(t, m)

	if got := m.State(); got != StateStopped {
		t.Errorf("State after Stop = %v, want stopped", got)
	}
	want := []string{
		"a:startup", "b:startup",
		"a:activate", "b:activate",
		"b:deactivate", "a:deactivate",
		"b:shutdown", "a:shutdown",
	}
	got := j.all()
	if len(got) != len(want) {
		t.Fatalf("hooks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hooks = %v, want %v", got, want)
		}
	}
}

func TestConcurrentStopsCollapse(t *testing.T) {
	j := &journal{}
	a := &hooked{name: "a", j: j}
	m := newManager(t, []module.Module{a})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Stop(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Stop[%d] = %v, want nil", i, err)
		}
	}
	// Exactly one teardown pass.
	counts := map[string]int{}
	for _, e := range j.all() {
		counts[e]++
	}
	if counts["a:shutdown"] != 1 || counts["a:deactivate"] != 1 {
		t.Errorf("teardown hooks ran %v times, want once each", counts)
	}
}

func TestStopWithoutStart(t *testing.T) {
	m := newManager(t, nil)
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on created manager failed: %v", err)
	}
	if got := m.State(); got != StateStopped {
		t.Errorf("State = %v, want stopped", got)
	}
	if err := m.Wait(); err != nil {
		t.Errorf("Wait = %v, want nil", err)
	}
}

func TestDrainPolicyProcessesQueuedWork(t *testing.T) {
	g := newGate()
	tl := &tally{}
	m := newManager(t, []module.Module{g, tl}, WithShutdownPolicy(PolicyDrain))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Park the loop, then queue work behind the blocker.
	if err := m.Enqueue("gate.hold", nil); err != nil {
		t.Fatalf("Enqueue gate.hold failed: %v", err)
	}
	<-g.entered
	for i := 0; i < 3; i++ {
		if err := m.Enqueue("tally.bump", nil); err != nil {
			t.Fatalf("Enqueue tally.bump failed: %v", err)
		}
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- m.Stop(context.Background()) }()
	waitFor(t, func() bool { return m.State() == StateStopping }, "stopping state")
	close(g.release)

	if err := <-stopDone; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := tl.count(); got != 3 {
		t.Errorf("drained bump count = %d, want 3", got)
	}
}

func TestDiscardPolicyDropsQueuedWork(t *testing.T) {
	g := newGate()
	tl := &tally{}
	m := newManager(t, []module.Module{g, tl}, WithShutdownPolicy(PolicyDiscard))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := m.Enqueue("gate.hold", nil); err != nil {
		t.Fatalf("Enqueue gate.hold failed: %v", err)
	}
	<-g.entered
	for i := 0; i < 3; i++ {
		if err := m.Enqueue("tally.bump", nil); err != nil {
			t.Fatalf("Enqueue tally.bump failed: %v", err)
		}
	}

	stopDone := make(chan error, 1)
	go func() { stopDone <- m.Stop(context.Background()) }()
	// The discard happens before Stop waits for the loop, so the queue
	// empties while the blocker is still held.
	waitFor(t, func() bool { return m.QueueLen() == 0 }, "queue discard")
	close(g.release)

	if err := <-stopDone; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := tl.count(); got != 0 {
		t.Errorf("bump count after discard = %d, want 0", got)
	}
}

func TestDiscardStopReleasesSyncCaller(t *testing.T) {
	g := newGate()
	tl := &tally{}
	m := newManager(t, []module.Module{g, tl}, WithShutdownPolicy(PolicyDiscard))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := m.Enqueue("gate.hold", nil); err != nil {
		t.Fatalf("Enqueue gate.hold failed: %v", err)
	}
	<-g.entered

	callErr := make(chan error, 1)
	go func() {
		_, err := m.ExecSync(context.Background(), "tally.bump", nil)
		callErr <- err
	}()
	waitFor(t, func() bool { return m.QueueLen() == 1 }, "queued sync call")

	stopDone := make(chan error, 1)
	go func() { stopDone <- m.Stop(context.Background()) }()

	select {
	case err := <-callErr:
		if !errors.Is(err, dispatch.ErrShutdown) {
			t.Errorf("ExecSync error = %v, want ErrShutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("parked ExecSync caller was not released")
	}

	close(g.release)
	if err := <-stopDone; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestRegisterAfterStartFails(t *testing.T) {
	m := newManager(t, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mustStop(t, m)

	if err := m.Register(&tally{}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Register after Start = %v, want ErrAlreadyStarted", err)
	}
}

// quitter removes itself during the deactivate phase.
type quitter struct {
	m   *Manager
	err error
}

func (q *quitter) Name() string { return "quitter" }

func (q *quitter) Deactivate(context.Context) error {
	q.err = q.m.Unregister("quitter")
	return nil
}

func TestUnregisterOnlyWhileStopping(t *testing.T) {
	qt := &quitter{}
	m := newManager(t, []module.Module{qt})
	qt.m = m

	if err := m.Unregister("quitter"); !errors.Is(err, ErrNotStopping) {
		t.Errorf("Unregister before Start = %v, want ErrNotStopping", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mustStop(t, m)

	if qt.err != nil {
		t.Errorf("Unregister during deactivate = %v, want nil", qt.err)
	}
	if err := m.Unregister("quitter"); !errors.Is(err, ErrNotStopping) {
		t.Errorf("Unregister after Stop = %v, want ErrNotStopping", err)
	}
}

func TestBrokerCallsAfterStop(t *testing.T) {
	m := newManager(t, []module.Module{&tally{}})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mustStop(t, m)

	if err := m.Enqueue("tally.bump", nil); !errors.Is(err, dispatch.ErrShutdown) {
		t.Errorf("Enqueue after Stop = %v, want ErrShutdown", err)
	}
	if err := m.Trigger("door_open", nil); !errors.Is(err, dispatch.ErrShutdown) {
		t.Errorf("Trigger after Stop = %v, want ErrShutdown", err)
	}
	if _, err := m.ExecSync(context.Background(), "tally.bump", nil); !errors.Is(err, dispatch.ErrShutdown) {
		t.Errorf("ExecSync after Stop = %v, want ErrShutdown", err)
	}
}

// selfStopper asks the manager to stop from inside a dispatched handler.
type selfStopper struct {
	m *Manager
}

func (s *selfStopper) Name() string { return "selfstop" }

func (s *selfStopper) Quit(context.Context, *module.Call) (any, error) {
	s.m.RequestStop()
	return nil, nil
}

func TestRequestStopFromHandler(t *testing.T) {
	ss := &selfStopper{}
	m := newManager(t, []module.Module{ss})
	ss.m = m
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := m.Enqueue("selfstop.quit", nil); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- m.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop after RequestStop")
	}
	if got := m.State(); got != StateStopped {
		t.Errorf("State = %v, want stopped", got)
	}
}

func TestStatsAfterDispatch(t *testing.T) {
	tl := &tally{}
	m := newManager(t, []module.Module{tl})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := m.Enqueue("tally.bump", nil); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	waitFor(t, func() bool { return tl.count() == 4 }, "bumps to dispatch")
	mustStop(t, m)

	st := m.Stats()
	if st.Tasks < 4 {
		t.Errorf("Stats.Tasks = %d, want >= 4", st.Tasks)
	}
}
