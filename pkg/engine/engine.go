// Package engine runs one processor script cooperatively.
//
// The script executes on a worker goroutine that blocks at every yield
// point. The host advances it one yield-to-yield segment per Step call.
// A single run token is held by whichever side touches script state, so host
// inspection never overlaps with script execution.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zurustar/procscript/pkg/bridge"
	"github.com/zurustar/procscript/pkg/compiler"
	"github.com/zurustar/procscript/pkg/console"
	"github.com/zurustar/procscript/pkg/logger"
	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/vm"
)

// DefaultTeardownTimeout bounds how long Load waits for the previous worker.
const DefaultTeardownTimeout = 2 * time.Second

var (
	// ErrNotParked is returned by SetVariableValue unless the worker waits at a yield point.
	ErrNotParked = errors.New("script is not parked at a yield point")
	// ErrNoSession is returned when nothing has been loaded.
	ErrNoSession = errors.New("no script loaded")
	// ErrBusy is returned by inspection while script code is running.
	ErrBusy = errors.New("script is running")
)

// Engine owns the current session of one processor.
type Engine struct {
	exec logic.Executor
	log  *slog.Logger

	teardownTimeout time.Duration
	clock           Clock
	restart         bool
	ipt             float64
	consoleCap      int

	console   *console.Console
	registers logic.Registers

	// token is the run token, held while its one slot is full. The worker
	// holds it while executing script code; the host takes it to inspect or
	// edit variables.
	token chan struct{}

	mu         sync.Mutex
	session    *session
	generation atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithTeardownTimeout bounds the wait for a superseded worker.
func WithTeardownTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.teardownTimeout = d
		}
	}
}

// WithConsoleCapacity caps the diagnostics buffer in runes. 0 keeps it unbounded.
func WithConsoleCapacity(n int) Option {
	return func(e *Engine) {
		e.consoleCap = n
	}
}

// WithClock sets the clock sleep is measured against.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRestart reruns the program each time it completes, like a processor
// looping over its code. Globals keep their values between runs.
func WithRestart(restart bool) Option {
	return func(e *Engine) {
		e.restart = restart
	}
}

// WithInstructionsPerTick sets @ipt on every Load.
func WithInstructionsPerTick(n float64) Option {
	return func(e *Engine) {
		e.ipt = n
	}
}

// New creates an engine driving exec. Nothing runs until Load.
func New(exec logic.Executor, opts ...Option) *Engine {
	e := &Engine{
		exec:            exec,
		log:             logger.GetLogger(),
		teardownTimeout: DefaultTeardownTimeout,
		clock:           SystemClock,
		token:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.console = console.New(console.WithCapacity(e.consoleCap), console.WithLogger(e.log))
	e.registers.Publish(logic.Capture(exec))
	return e
}

// Load stops the current session and starts src. An empty source loads
// DefaultProgram. Compile errors are written to the console and returned;
// the engine is then errored until the next Load.
func (e *Engine) Load(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old := e.session; old != nil {
		e.teardown(old)
		e.session = nil
	}

	if strings.TrimSpace(src) == "" {
		src = DefaultProgram
	}
	gen := e.generation.Add(1)
	s := newSession(e, gen)

	res, errs := compiler.Compile(src)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.state.Store(int32(StateErrored))
		close(s.done)
		e.session = s
		e.console.Error(err.Error())
		s.log.Warn("Compile failed", "errors", len(errs), "line", compiler.FirstLine(errs))
		return fmt.Errorf("failed to compile script: %w", err)
	}
	s.program = res

	if e.ipt > 0 {
		e.exec.Var(logic.RegIPT).SetNum(e.ipt)
	}
	e.exec.Var(logic.RegCounter).SetNum(0)

	br := bridge.New(e.exec,
		bridge.WithLogger(s.log),
		bridge.WithSleeper(s),
		bridge.WithConsole(e.console))
	s.vm = vm.New(res.OpCodes,
		vm.WithLogger(s.log),
		vm.WithContext(s.ctx),
		vm.WithYieldHook(s),
		vm.WithSandbox(br.Sandbox()),
		vm.WithGlobals(br.Globals()))

	e.session = s
	e.registers.Publish(logic.Capture(e.exec))

	s.state.Store(int32(StateStarting))
	go s.work()
	close(s.start)

	s.log.Info("Script loaded", "guards", res.Guards, "opcodes", len(res.OpCodes))
	return nil
}

// teardown cancels s and waits a bounded time for its worker. A worker that
// does not stop in time is abandoned; its generation no longer matches, so
// its remaining writes are dropped.
func (e *Engine) teardown(s *session) {
	s.state.Store(int32(StateStopping))
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(e.teardownTimeout):
		s.log.Warn("Worker did not stop in time, abandoning", "timeout", e.teardownTimeout)
	}
	s.state.Store(int32(StateIdle))
	s.log.Debug("Session torn down")
}

func (e *Engine) current() *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Step releases exactly one yield-to-yield segment and returns without
// waiting for it. It does nothing unless a session is parked and any sleep
// has elapsed.
func (e *Engine) Step() {
	s := e.current()
	if s == nil || s.vm == nil {
		return
	}
	if until := s.sleepUntil.Load(); until != 0 && e.clock.Now().UnixNano() < until {
		return
	}
	if !s.state.CompareAndSwap(int32(StateParked), int32(StateRunning)) {
		return
	}
	s.step <- struct{}{}
}

// Initialized reports whether a program compiled and has a worker.
func (e *Engine) Initialized() bool {
	s := e.current()
	return s != nil && s.vm != nil
}

// State returns the state of the current session.
func (e *Engine) State() State {
	s := e.current()
	if s == nil {
		return StateIdle
	}
	return State(s.state.Load())
}

// Registers returns the latest consistent register snapshot.
func (e *Engine) Registers() logic.RegisterSet {
	return e.registers.Load()
}

// Yields returns how many yield points the current session has reached.
func (e *Engine) Yields() uint64 {
	if s := e.current(); s != nil {
		return s.yields.Load()
	}
	return 0
}

// SessionID identifies the current session in logs.
func (e *Engine) SessionID() string {
	if s := e.current(); s != nil {
		return s.id
	}
	return ""
}

// TransformedSource returns the loaded program with its yield guards.
func (e *Engine) TransformedSource() string {
	if s := e.current(); s != nil && s.program != nil {
		return s.program.Source
	}
	return ""
}

// inspect runs fn with the run token when no script code is running.
func (e *Engine) inspect(fn func(s *session) error) error {
	s := e.current()
	if s == nil || s.vm == nil {
		return ErrNoSession
	}
	select {
	case e.token <- struct{}{}:
	default:
		return ErrBusy
	}
	defer func() { <-e.token }()
	return fn(s)
}

// Variables lists the script's global variables. It fails with ErrBusy
// while script code is running and ErrNoSession before the first Load.
func (e *Engine) Variables() ([]string, error) {
	var names []string
	err := e.inspect(func(s *session) error {
		names = s.vm.Globals()
		return nil
	})
	return names, err
}

// GetVariableValue returns a global variable as a script value. ok is false
// when the script has no such global.
func (e *Engine) GetVariableValue(name string) (value any, ok bool, err error) {
	err = e.inspect(func(s *session) error {
		value, ok = s.vm.GetGlobal(name)
		return nil
	})
	return value, ok, err
}

// SetVariableValue assigns a global variable while the worker is parked.
func (e *Engine) SetVariableValue(name string, value any) error {
	return e.inspect(func(s *session) error {
		if State(s.state.Load()) != StateParked {
			return ErrNotParked
		}
		return s.vm.SetGlobal(name, value)
	})
}

// SetConsoleListener registers fn to receive the whole console on every change.
func (e *Engine) SetConsoleListener(fn func(text string)) {
	e.console.SetListener(fn)
}

// Console returns the diagnostics buffer.
func (e *Engine) Console() *console.Console {
	return e.console
}

// Close tears down the current session.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.teardown(e.session)
		e.session = nil
	}
}

// sessionLogger tags log lines with a fresh session id.
func (e *Engine) sessionLogger() (string, *slog.Logger) {
	id := uuid.NewString()
	return id, e.log.With("session", id)
}
