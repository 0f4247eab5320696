package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zurustar/procscript/pkg/logger"
	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/world"
)

const waitLimit = 5 * time.Second

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *world.World) {
	t.Helper()
	w, err := world.New(world.Default(), world.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("world.New() error: %v", err)
	}
	opts = append([]Option{WithLogger(logger.Discard())}, opts...)
	e := New(w, opts...)
	t.Cleanup(e.Close)
	return e, w
}

func mustLoad(t *testing.T, e *Engine, src string) {
	t.Helper()
	if err := e.Load(src); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

// settle waits until the worker is parked or done and returns that state.
func settle(t *testing.T, e *Engine) State {
	t.Helper()
	deadline := time.Now().Add(waitLimit)
	for time.Now().Before(deadline) {
		switch st := e.State(); st {
		case StateParked, StateFinished, StateErrored, StateIdle:
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("engine did not settle, state %s", e.State())
	return StateIdle
}

// runToEnd steps until the script stops and returns the number of steps taken.
func runToEnd(t *testing.T, e *Engine) (State, int) {
	t.Helper()
	for steps := 0; steps < 100000; steps++ {
		st := settle(t, e)
		if st != StateParked {
			return st, steps
		}
		e.Step()
	}
	t.Fatal("script did not finish")
	return StateIdle, 0
}

func globalNum(t *testing.T, e *Engine, name string) float64 {
	t.Helper()
	v, ok, err := e.GetVariableValue(name)
	if err != nil {
		t.Fatalf("GetVariableValue(%q) error: %v", name, err)
	}
	if !ok {
		t.Fatalf("global %q not found", name)
	}
	f, ok := v.(float64)
	if !ok {
		t.Fatalf("global %q = %#v, want a number", name, v)
	}
	return f
}

func TestDefaultProgram(t *testing.T) {
	e, _ := newEngine(t)
	mustLoad(t, e, "")

	if !e.Initialized() {
		t.Fatal("Initialized() = false after loading the default program")
	}
	st, steps := runToEnd(t, e)
	if st != StateFinished {
		t.Fatalf("state = %s, want finished", st)
	}

	var want []string
	for i := 1; i <= 10; i++ {
		want = append(want, fmt.Sprintf("LOG: count: %d", i))
	}
	for i := 9; i >= 0; i-- {
		want = append(want, fmt.Sprintf("LOG: test: %d", i))
	}
	got := e.Console().Tail(-1)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("console =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	// Each while loop checks its guard once per condition test.
	if steps != 22 {
		t.Errorf("steps = %d, want 22", steps)
	}
	if got := e.Yields(); got != 22 {
		t.Errorf("Yields() = %d, want 22", got)
	}
}

func TestHostCallsYieldOncePerIteration(t *testing.T) {
	e, w := newEngine(t)
	mustLoad(t, e, `var cell = cpu.link("cell1");
for (var i = 0; i < 5; i++) {
    cell.write(i, i * 2);
}
`)

	var last float64
	for {
		st := settle(t, e)
		if st != StateParked {
			if st != StateFinished {
				t.Fatalf("state = %s, want finished", st)
			}
			break
		}
		counter := e.Registers().Counter
		if counter < last {
			t.Errorf("@counter went back from %v to %v", last, counter)
		}
		last = counter
		e.Step()
	}

	if got := e.Yields(); got != 5 {
		t.Errorf("Yields() = %d, want 5", got)
	}
	mem := w.Memory("cell1")
	for i := range 5 {
		if mem[i] != float64(i*2) {
			t.Errorf("cell1[%d] = %v, want %v", i, mem[i], i*2)
		}
	}
}

func TestUncaughtError(t *testing.T) {
	e, _ := newEngine(t)
	mustLoad(t, e, `var n = 0;
while (n < 2) { n++; }
throw new Error("boom");
`)

	st, _ := runToEnd(t, e)
	if st != StateErrored {
		t.Fatalf("state = %s, want errored", st)
	}

	var errs []string
	for _, line := range e.Console().Tail(-1) {
		if strings.HasPrefix(line, "ERROR: ") {
			errs = append(errs, line)
		}
	}
	if len(errs) != 1 {
		t.Fatalf("error lines = %q, want exactly one", errs)
	}
	if !strings.Contains(errs[0], "boom") || !strings.Contains(errs[0], "line 3") {
		t.Errorf("error line = %q, want the message and line 3", errs[0])
	}

	before := e.Yields()
	e.Step()
	if e.State() != StateErrored || e.Yields() != before {
		t.Error("Step() after an error changed the engine")
	}
}

func TestCaughtErrorKeepsRunning(t *testing.T) {
	e, _ := newEngine(t)
	mustLoad(t, e, `try {
    cpu.link("nothing").read(0);
} catch (err) {
    console.log("caught " + err.name);
}
`)
	st, _ := runToEnd(t, e)
	if st != StateFinished {
		t.Fatalf("state = %s, want finished", st)
	}
	if got := e.Console().Tail(-1); len(got) != 1 || got[0] != "LOG: caught TypeError" {
		t.Errorf("console = %q", got)
	}
}

func TestCompileError(t *testing.T) {
	e, _ := newEngine(t)
	err := e.Load("var = ;")
	if err == nil {
		t.Fatal("Load() of invalid source returned nil")
	}
	if e.Initialized() {
		t.Error("Initialized() = true after a compile error")
	}
	if st := e.State(); st != StateErrored {
		t.Errorf("state = %s, want errored", st)
	}
	if !strings.HasPrefix(e.Console().Text(), "ERROR: ") {
		t.Errorf("console = %q, want an error entry", e.Console().Text())
	}
	e.Step()

	mustLoad(t, e, `console.log("ok");`)
	if st, _ := runToEnd(t, e); st != StateFinished {
		t.Errorf("state after reload = %s, want finished", st)
	}
}

func TestSingleStep(t *testing.T) {
	e, _ := newEngine(t)
	mustLoad(t, e, `var n = 0; while (true) { n++; }`)

	if st := settle(t, e); st != StateParked {
		t.Fatalf("state = %s, want parked", st)
	}
	for i := range 20 {
		if got := globalNum(t, e, "n"); got != float64(i) {
			t.Fatalf("after %d steps n = %v", i, got)
		}
		e.Step()
		settle(t, e)
	}
}

func TestStepWithoutParkDoesNothing(t *testing.T) {
	e, _ := newEngine(t)
	e.Step()
	if st := e.State(); st != StateIdle {
		t.Errorf("state = %s, want idle", st)
	}
	if e.Initialized() {
		t.Error("Initialized() = true before Load")
	}
}

func TestReloadStopsPreviousWorker(t *testing.T) {
	e, _ := newEngine(t)

	for round := range 5 {
		mustLoad(t, e, fmt.Sprintf(`while (true) { console.log("run %d"); }`, round))
		for range 3 {
			settle(t, e)
			e.Step()
		}
		settle(t, e)
	}

	mustLoad(t, e, `console.log("last");`)
	st, _ := runToEnd(t, e)
	if st != StateFinished {
		t.Fatalf("state = %s, want finished", st)
	}

	lines := e.Console().Tail(-1)
	if lines[len(lines)-1] != "LOG: last" {
		t.Errorf("last line = %q, want LOG: last", lines[len(lines)-1])
	}
	for round := range 5 {
		n := strings.Count(e.Console().Text(), fmt.Sprintf("LOG: run %d\n", round))
		if n != 3 {
			t.Errorf("run %d logged %d times, want 3", round, n)
		}
	}
}

func TestTeardownTimeoutAbandonsWorker(t *testing.T) {
	e, _ := newEngine(t, WithTeardownTimeout(10*time.Millisecond))
	mustLoad(t, e, `while (true) {}`)
	settle(t, e)

	done := make(chan error, 1)
	go func() { done <- e.Load(`console.log("next");`) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
	case <-time.After(waitLimit):
		t.Fatal("Load() blocked on the previous worker")
	}
	if st, _ := runToEnd(t, e); st != StateFinished {
		t.Errorf("state = %s, want finished", st)
	}
}

func TestSleepThrottlesStep(t *testing.T) {
	clock := newFakeClock()
	e, _ := newEngine(t, WithClock(clock))
	mustLoad(t, e, `cpu.sleep(1000); console.log("awake");`)

	if st := settle(t, e); st != StateParked {
		t.Fatalf("state = %s, want parked", st)
	}
	for range 10 {
		e.Step()
		if st := e.State(); st != StateParked {
			t.Fatalf("Step() during sleep moved the worker to %s", st)
		}
	}

	clock.Advance(999 * time.Millisecond)
	e.Step()
	if st := e.State(); st != StateParked {
		t.Fatalf("state = %s before the sleep ended", st)
	}

	clock.Advance(time.Millisecond)
	e.Step()
	if st := settle(t, e); st != StateFinished {
		t.Fatalf("state = %s, want finished", st)
	}
	if got := e.Console().Text(); got != "LOG: awake\n" {
		t.Errorf("console = %q", got)
	}
}

func TestVariables(t *testing.T) {
	e, _ := newEngine(t)
	mustLoad(t, e, `var a = 1; const b = 2; var total = 0;
while (true) { total = total + a; }
`)
	if st := settle(t, e); st != StateParked {
		t.Fatalf("state = %s, want parked", st)
	}

	names, err := e.Variables()
	if err != nil {
		t.Fatalf("Variables() error: %v", err)
	}
	if strings.Join(names, ",") != "a,b,total" {
		t.Errorf("Variables() = %v", names)
	}
	if err := e.SetVariableValue("a", 10.0); err != nil {
		t.Fatalf("SetVariableValue() error: %v", err)
	}
	if err := e.SetVariableValue("b", 3.0); err == nil {
		t.Error("SetVariableValue() on a const returned nil")
	}

	e.Step()
	settle(t, e)
	if got := globalNum(t, e, "total"); got != 10 {
		t.Errorf("total = %v, want 10", got)
	}
	if _, ok, err := e.GetVariableValue("missing"); ok || err != nil {
		t.Errorf("GetVariableValue(missing) = ok %v, error %v; want not found", ok, err)
	}
}

func TestSetVariableRequiresPark(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.SetVariableValue("a", 1.0); !errors.Is(err, ErrNoSession) {
		t.Errorf("before Load error = %v, want ErrNoSession", err)
	}
	if _, err := e.Variables(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Variables() before Load error = %v, want ErrNoSession", err)
	}
	if _, _, err := e.GetVariableValue("a"); !errors.Is(err, ErrNoSession) {
		t.Errorf("GetVariableValue() before Load error = %v, want ErrNoSession", err)
	}

	mustLoad(t, e, `var a = 1;`)
	if st, _ := runToEnd(t, e); st != StateFinished {
		t.Fatalf("state = %s, want finished", st)
	}
	if err := e.SetVariableValue("a", 2.0); !errors.Is(err, ErrNotParked) {
		t.Errorf("after finish error = %v, want ErrNotParked", err)
	}
}

func TestRegistersSnapshot(t *testing.T) {
	e, w := newEngine(t, WithInstructionsPerTick(8))
	mustLoad(t, e, `var u = cpu.bind("flare");
while (true) { u.idle(); }
`)
	settle(t, e)
	e.Step()
	settle(t, e)

	regs := e.Registers()
	if regs.IPT != 8 {
		t.Errorf("IPT = %v, want 8", regs.IPT)
	}
	if regs.This != w.Self() {
		t.Errorf("This = %v, want the processor", regs.This)
	}
	if u, ok := regs.Unit.(logic.Unit); !ok || u.UnitType() != "flare" {
		t.Errorf("Unit = %v, want a flare", regs.Unit)
	}
	if regs.Counter != 2 {
		t.Errorf("Counter = %v, want 2", regs.Counter)
	}

	v := regs.Version
	e.Step()
	settle(t, e)
	if e.Registers().Version <= v {
		t.Error("version did not advance after a step")
	}
}

func TestRestart(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "var keeps its value",
			src:  `var runs; if (runs === undefined) { runs = 0; } runs++; console.log("run " + runs);`,
			want: "LOG: run 1\nLOG: run 2\nLOG: run 3\nLOG: run 4\n",
		},
		{
			name: "top-level let and const are redeclared",
			src: `const step = 2; let n = 1; var runs; if (runs === undefined) { runs = 0; }
runs += step; n += runs; console.log("run " + runs + " " + n);`,
			want: "LOG: run 2 3\nLOG: run 4 5\nLOG: run 6 7\nLOG: run 8 9\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, WithRestart(true))
			mustLoad(t, e, tt.src)

			for range 3 {
				if st := settle(t, e); st != StateParked {
					t.Fatalf("state = %s, want parked between runs\nconsole:\n%s", st, e.Console().Text())
				}
				e.Step()
			}
			settle(t, e)
			if got := e.Console().Text(); got != tt.want {
				t.Errorf("console = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsoleListener(t *testing.T) {
	e, _ := newEngine(t, WithConsoleCapacity(64))
	var (
		mu   sync.Mutex
		seen []string
	)
	e.SetConsoleListener(func(text string) {
		mu.Lock()
		seen = append(seen, text)
		mu.Unlock()
	})
	mustLoad(t, e, `console.log("a"); console.warn("b", 1);`)
	runToEnd(t, e)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[1] != "LOG: a\nWARN: b 1\n" {
		t.Errorf("listener saw %q", seen)
	}
	if e.Console().Capacity() != 64 {
		t.Errorf("Capacity() = %d, want 64", e.Console().Capacity())
	}
}

func TestTransformedSource(t *testing.T) {
	e, _ := newEngine(t)
	if e.TransformedSource() != "" || e.SessionID() != "" {
		t.Error("TransformedSource or SessionID set before Load")
	}
	mustLoad(t, e, `while (false) {}`)
	if !strings.Contains(e.TransformedSource(), "while") {
		t.Errorf("TransformedSource() = %q", e.TransformedSource())
	}
	first := e.SessionID()
	mustLoad(t, e, `while (false) {}`)
	if first == "" || first == e.SessionID() {
		t.Errorf("session ids %q and %q should differ", first, e.SessionID())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateParked, "parked"},
		{StateFinished, "finished"},
		{StateErrored, "errored"},
		{StateStopping, "stopping"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
