package engine

import "time"

// State is the lifecycle state of the loaded session.
type State int32

const (
	// StateIdle: nothing loaded, or the previous session was torn down.
	StateIdle State = iota
	// StateStarting: the worker exists but has not reached its first yield.
	StateStarting
	// StateRunning: the worker is executing script code.
	StateRunning
	// StateParked: the worker is blocked at a yield point waiting for Step.
	StateParked
	// StateFinished: the program ran to completion.
	StateFinished
	// StateErrored: compilation failed or the script raised an uncaught error.
	StateErrored
	// StateStopping: a new Load is tearing the session down.
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateParked:
		return "parked"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Clock tells the time used by sleep.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// DefaultProgram runs when an empty source is loaded.
const DefaultProgram = `var count = 0;
while (count < 10) {
    count++;
    console.log("count: " + count);
}
var test = 10;
while (test > 0) {
    test--;
    console.log("test: " + test);
}
`
