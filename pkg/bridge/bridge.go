// Package bridge exposes a processor to script code.
//
// Every call that reaches the processor follows the same order: it yields
// once, copies its arguments into the handle's reusable registers, runs
// exactly one instruction and converts the outputs back into script values.
// Entities come back as fresh handles that compare equal when they refer to
// the same entity.
package bridge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zurustar/procscript/pkg/console"
	"github.com/zurustar/procscript/pkg/logger"
	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// Sleeper suspends script progress. The bridge calls Sleep and then yields.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc adapts a function to Sleeper.
type SleepFunc func(d time.Duration)

// Sleep calls f.
func (f SleepFunc) Sleep(d time.Duration) { f(d) }

// Bridge binds one executor to the script-visible objects.
type Bridge struct {
	exec    logic.Executor
	sleeper Sleeper
	console *console.Console
	sandbox *sandbox.Sandbox
	cpu     *CPU
	log     *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) {
		b.log = log
	}
}

// WithSleeper sets what cpu.sleep suspends.
func WithSleeper(s Sleeper) Option {
	return func(b *Bridge) {
		b.sleeper = s
	}
}

// WithConsole sets the buffer behind the console global.
func WithConsole(c *console.Console) Option {
	return func(b *Bridge) {
		b.console = c
	}
}

// New creates a bridge for exec. @this must hold the processor building.
func New(exec logic.Executor, opts ...Option) *Bridge {
	b := &Bridge{log: logger.GetLogger()}
	for _, opt := range opts {
		opt(b)
	}
	if b.console == nil {
		b.console = console.New(console.WithLogger(b.log))
	}
	b.exec = exec
	b.sandbox = sandbox.New(sandbox.WithLogger(b.log))
	b.register()

	self := logic.NewVar("cpu")
	self.SetObj(exec.Var(logic.RegThis).Obj())
	b.cpu = &CPU{handle: b.newHandle(self)}
	b.cpu.canvas = &Canvas{b: b, p: newSlots()}
	return b
}

// Sandbox returns the allow-list every handle type is registered in.
func (b *Bridge) Sandbox() *sandbox.Sandbox {
	return b.sandbox
}

// CPU returns the processor handle.
func (b *Bridge) CPU() *CPU {
	return b.cpu
}

// Console returns the diagnostics buffer behind the console global.
func (b *Bridge) Console() *console.Console {
	return b.console
}

// Globals returns the values installed in script scope.
func (b *Bridge) Globals() map[string]any {
	return map[string]any{
		"cpu":         b.cpu,
		"console":     &Console{c: b.console},
		"RadarTarget": enumRecord(logic.RadarTargets),
		"RadarSort":   enumRecord(logic.RadarSorts),
		"BlockFlag":   enumRecord(logic.BlockFlags),
	}
}

// enumRecord maps each name to itself. Script code passes the strings back.
func enumRecord[T ~string](values []T) *sandbox.Record {
	r := sandbox.NewRecord()
	for _, v := range values {
		r.Set(string(v), string(v))
	}
	r.Frozen = true
	return r
}

func (b *Bridge) register() {
	building := methods(buildingMethods)
	b.sandbox.Register(&Building{}, &sandbox.Class{Name: "Building", Methods: building})
	b.sandbox.Register(&Unit{}, &sandbox.Class{Name: "Unit", Methods: methods(buildingMethods, unitMethods)})
	b.sandbox.Register(&CPU{}, &sandbox.Class{
		Name:    "CPU",
		Methods: methods(buildingMethods, cpuMethods),
		Fields: map[string]sandbox.FieldFunc{
			"canvas": func(recv any) any { return recv.(*CPU).canvas },
		},
	})
	b.sandbox.Register(&Canvas{}, &sandbox.Class{Name: "Canvas", Methods: canvasMethods()})
	b.sandbox.Register(&Console{}, &sandbox.Class{Name: "Console", Methods: consoleMethods()})
}

// run executes one instruction and names the calling method in errors.
func (b *Bridge) run(c *sandbox.Call, inst logic.Instruction) error {
	if err := b.exec.Run(inst); err != nil {
		return fmt.Errorf("%s: %w", c.Method, err)
	}
	return nil
}

// value converts a register into a script value.
func (b *Bridge) value(v *logic.Var) any {
	if !v.IsObj() {
		return v.Num()
	}
	switch o := v.Obj().(type) {
	case nil:
		return nil
	case logic.Unit:
		return &Unit{handle: b.entityHandle(o)}
	case logic.Building:
		return &Building{handle: b.entityHandle(o)}
	case string:
		return o
	case float64:
		return o
	case bool:
		return o
	default:
		return logic.FormatValue(o)
	}
}

// marshal copies argument i into dst.
func (b *Bridge) marshal(c *sandbox.Call, i int, dst *logic.Var) error {
	switch v := c.Arg(i).(type) {
	case float64:
		dst.SetNum(v)
	case bool:
		dst.SetBool(v)
	case string:
		dst.SetObj(v)
	case nil, sandbox.UndefinedType:
		dst.SetObj(nil)
	default:
		e, err := entityArg(c, i)
		if err != nil {
			return err
		}
		dst.SetObj(e)
	}
	return nil
}

// entityArg returns the entity behind a building or unit handle argument.
func entityArg(c *sandbox.Call, i int) (logic.Entity, error) {
	if v, ok := c.Host(i); ok {
		if h, ok := v.(holder); ok {
			if e := h.base().entity(); e != nil {
				return e, nil
			}
		}
	}
	return nil, c.TypeErrorf("argument %d must be a building or unit", i+1)
}

func sameEntity(a, b any) bool {
	ea, okA := a.(logic.Entity)
	eb, okB := b.(logic.Entity)
	return okA && okB && ea.EntityID() == eb.EntityID()
}

func enumArg[T ~string](c *sandbox.Call, i int, values []T) (T, error) {
	s, err := c.String(i)
	if err != nil {
		return "", err
	}
	v, ok := logic.Parse(values, s)
	if !ok {
		return "", c.TypeErrorf("unknown value %q", s)
	}
	return v, nil
}
