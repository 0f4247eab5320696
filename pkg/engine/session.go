package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/zurustar/procscript/pkg/compiler"
	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/vm"
)

// errSuperseded stops a worker whose session has been replaced.
var errSuperseded = errors.New("session superseded")

// session is one loaded program and its worker goroutine.
type session struct {
	e   *Engine
	id  string
	gen uint64
	log *slog.Logger

	program *compiler.Result
	vm      *vm.VM

	ctx    context.Context
	cancel context.CancelFunc

	start chan struct{}
	step  chan struct{}
	done  chan struct{}

	state      atomic.Int32
	sleepUntil atomic.Int64
	yields     atomic.Uint64

	// holding is touched only by the worker goroutine.
	holding bool
}

func newSession(e *Engine, gen uint64) *session {
	id, log := e.sessionLogger()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		e:      e,
		id:     id,
		gen:    gen,
		log:    log.With("generation", gen),
		ctx:    ctx,
		cancel: cancel,
		start:  make(chan struct{}),
		step:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateIdle))
	return s
}

// live reports whether this session is still the engine's current one.
func (s *session) live() bool {
	return s.e.generation.Load() == s.gen && s.ctx.Err() == nil
}

// acquire waits for the run token. It gives up when the session is torn
// down, so a worker queued behind an abandoned one can still exit.
func (s *session) acquire() error {
	select {
	case s.e.token <- struct{}{}:
		s.holding = true
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *session) release() {
	if s.holding {
		s.holding = false
		<-s.e.token
	}
}

// Sleep implements bridge.Sleeper.
func (s *session) Sleep(d time.Duration) {
	s.sleepUntil.Store(s.e.clock.Now().Add(d).UnixNano())
}

// OnYieldPoint implements vm.YieldHook. It publishes the registers, gives
// up the run token and blocks until Step or teardown.
func (s *session) OnYieldPoint(ctx context.Context, line int) error {
	if !s.live() {
		return errSuperseded
	}
	s.yields.Add(1)
	s.e.exec.Var(logic.RegCounter).SetNum(float64(line))
	s.e.registers.Publish(logic.Capture(s.e.exec))

	s.release()
	s.state.CompareAndSwap(int32(StateRunning), int32(StateParked))
	s.state.CompareAndSwap(int32(StateStarting), int32(StateParked))

	select {
	case <-s.step:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.acquire(); err != nil {
		return err
	}
	if !s.live() {
		return errSuperseded
	}
	return nil
}

// work is the worker goroutine. Nothing that happens in it reaches the host
// as a panic; faults end up in the console.
func (s *session) work() {
	defer close(s.done)
	defer s.release()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Worker panic", "panic", r, "stack", string(debug.Stack()))
			s.fault(fmt.Sprintf("internal error: %v", r))
		}
	}()

	select {
	case <-s.start:
	case <-s.ctx.Done():
		return
	}
	if err := s.acquire(); err != nil {
		s.log.Debug("Worker stopped before it got the run token", "error", err)
		return
	}
	s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
	s.log.Debug("Worker started")

	for {
		err := s.vm.Run()
		switch {
		case err == nil:
		case vm.IsAbort(err):
			s.log.Debug("Worker aborted", "error", err)
			return
		default:
			s.fault(describe(err))
			return
		}

		if !s.e.restart {
			break
		}
		// Every rerun passes a yield point, so a program without loops
		// cannot spin the worker.
		if err := s.vm.Yield(); err != nil {
			s.log.Debug("Worker aborted between runs", "error", err)
			return
		}
	}

	if s.live() {
		s.e.registers.Publish(logic.Capture(s.e.exec))
		s.state.CompareAndSwap(int32(StateRunning), int32(StateFinished))
		s.log.Info("Script finished", "yields", s.yields.Load())
	}
}

// fault reports an uncaught error and marks the session errored.
func (s *session) fault(msg string) {
	if !s.live() {
		return
	}
	s.e.console.Error(msg)
	s.state.CompareAndSwap(int32(StateRunning), int32(StateErrored))
	s.state.CompareAndSwap(int32(StateStarting), int32(StateErrored))
	s.log.Warn("Script error", "error", msg)
}

// describe renders an uncaught error with its trace.
func describe(err error) string {
	var se *vm.ScriptError
	if errors.As(err, &se) && len(se.Trace) > 0 {
		return se.Error() + "\n" + se.StackTrace()
	}
	return err.Error()
}
