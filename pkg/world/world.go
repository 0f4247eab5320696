// Package world is a small deterministic simulation that executes processor
// instructions. It stands in for a real game when running scripts from the
// command line and in tests.
package world

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/zurustar/procscript/pkg/logger"
	"github.com/zurustar/procscript/pkg/logic"
)

// Buffer limits of one processor.
const (
	MaxTextBuffer     = 400
	MaxGraphicsBuffer = 256
)

// Ranges in tiles.
const (
	ItemTransferRange = 3.75
	MineRange         = 8.75
	PayloadRange      = 2.0
)

// World holds every entity and the register set of its single processor.
// It is safe for concurrent use; each instruction runs under one lock.
type World struct {
	mu  sync.Mutex
	log *slog.Logger

	width, height int
	floor         logic.Content

	self      *Building
	buildings []*Building
	units     []*Unit
	ores      []Ore
	spawns    []Point
	nextID    int

	vars  map[string]*logic.Var
	text  strings.Builder
	draws []DrawCommand

	tick     uint64
	executed uint64
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

// New builds a world from a definition.
func New(def *Definition, opts ...Option) (*World, error) {
	w := &World{
		log:  logger.GetLogger(),
		vars: make(map[string]*logic.Var),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.build(def); err != nil {
		return nil, err
	}

	w.reg(logic.RegThis).SetObj(w.self)
	w.reg(logic.RegUnit).SetObj(nil)
	w.reg(logic.RegCounter).SetNum(0)
	ipt := def.Processor.IPT
	if ipt <= 0 {
		ipt = 2
	}
	w.reg(logic.RegIPT).SetNum(ipt)

	w.log.Debug("World created",
		"buildings", len(w.buildings),
		"units", len(w.units),
		"links", len(w.self.links))
	return w, nil
}

// Var implements logic.Executor. Unknown names starting with @ resolve to
// content constants, so "@flare" holds the content flare.
func (w *World) Var(name string) *logic.Var {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg(name)
}

func (w *World) reg(name string) *logic.Var {
	if v, ok := w.vars[name]; ok {
		return v
	}
	v := logic.NewVar(name)
	if c, ok := strings.CutPrefix(name, "@"); ok && c != "" {
		v.SetObj(logic.Content(c))
	}
	w.vars[name] = v
	return v
}

// Run implements logic.Executor.
func (w *World) Run(inst logic.Instruction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.executed++
	switch in := inst.(type) {
	case *logic.Sense:
		w.sense(in)
	case *logic.Control:
		w.control(in)
	case *logic.Read:
		w.read(in)
	case *logic.Write:
		w.write(in)
	case *logic.Radar:
		w.radar(in)
	case *logic.UnitBind:
		w.bind(in)
	case *logic.UnitControl:
		w.unitControl(in)
	case *logic.UnitLocate:
		w.locate(in)
	case *logic.Draw:
		w.draw(in)
	case *logic.Print:
		w.print(in)
	case *logic.PrintFlush:
		w.printFlush(in)
	case *logic.DrawFlush:
		w.drawFlush(in)
	default:
		return fmt.Errorf("unsupported instruction %q", inst.Op())
	}
	w.log.Debug("Instruction executed", "op", inst.Op())
	return nil
}

// Advance runs the simulation for n ticks: units move toward their
// destination, miners collect ore and the first build plan of each unit is placed.
func (w *World) Advance(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for range n {
		w.tick++
		for _, u := range w.units {
			if u.dead {
				continue
			}
			w.moveUnit(u)
			w.mineTick(u)
			w.buildTick(u)
		}
	}
	w.reg("@tick").SetNum(float64(w.tick))
}

func (w *World) moveUnit(u *Unit) {
	if !u.moving {
		return
	}
	d := dist(u.X, u.Y, u.moveX, u.moveY)
	if d <= u.approachRadius {
		u.moving = false
		return
	}
	step := u.Speed
	if u.Boosting {
		step *= 1.5
	}
	if step >= d-u.approachRadius {
		if u.approachRadius == 0 {
			u.X, u.Y, u.moving = u.moveX, u.moveY, false
			return
		}
		ratio := (d - u.approachRadius) / d
		u.X += (u.moveX - u.X) * ratio
		u.Y += (u.moveY - u.Y) * ratio
		u.moving = false
		return
	}
	u.X += (u.moveX - u.X) / d * step
	u.Y += (u.moveY - u.Y) / d * step
}

func (w *World) mineTick(u *Unit) {
	if !u.Mining || w.tick%30 != 0 {
		return
	}
	ore, ok := w.oreAt(int(u.MineX), int(u.MineY))
	if !ok || dist(u.X, u.Y, u.MineX, u.MineY) > MineRange {
		u.Mining = false
		return
	}
	if u.Stack > 0 && u.Item != ore.Item {
		return
	}
	if u.Stack < u.ItemCapacity {
		u.Item = ore.Item
		u.Stack++
	}
}

func (w *World) buildTick(u *Unit) {
	if len(u.Plans) == 0 {
		return
	}
	plan := u.Plans[0]
	u.Plans = u.Plans[1:]
	if w.buildingAt(plan.X, plan.Y) != nil {
		return
	}
	w.place(&Building{
		Type:      plan.Block,
		X:         float64(plan.X),
		Y:         float64(plan.Y),
		Size:      1,
		Team:      u.Team,
		Health:    100,
		MaxHealth: 100,
		Enabled:   true,
		Rotation:  float64(plan.Rotation),
		Config:    plan.Config,
	})
}

func (w *World) place(b *Building) *Building {
	w.nextID++
	b.ID = w.nextID
	b.world = w
	if b.Items == nil {
		b.Items = make(map[logic.Content]int)
	}
	w.buildings = append(w.buildings, b)
	return b
}

func (w *World) buildingAt(x, y int) *Building {
	for _, b := range w.buildings {
		if b.dead {
			continue
		}
		half := max(b.Size, 1) / 2
		if float64(x) >= b.X-half+0.5 && float64(x) < b.X+half+0.5 &&
			float64(y) >= b.Y-half+0.5 && float64(y) < b.Y+half+0.5 {
			return b
		}
	}
	return nil
}

func (w *World) oreAt(x, y int) (Ore, bool) {
	for _, o := range w.ores {
		if o.X == x && o.Y == y {
			return o, true
		}
	}
	return Ore{}, false
}

func (w *World) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < w.width && y < w.height
}

// Self returns the processor building.
func (w *World) Self() *Building {
	return w.self
}

// Building returns the living building with the given name.
func (w *World) Building(name string) (*Building, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.buildings {
		if b.Name == name && !b.dead {
			return b, true
		}
	}
	return nil, false
}

// Units returns a copy of every living unit, ordered by id.
func (w *World) Units() []Unit {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Unit
	for _, u := range w.units {
		if !u.dead {
			c := *u
			c.Plans = slices.Clone(u.Plans)
			c.Payload = slices.Clone(u.Payload)
			out = append(out, c)
		}
	}
	return out
}

// Message returns the text last flushed to the named message block.
func (w *World) Message(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.buildings {
		if b.Name == name {
			return b.Message
		}
	}
	return ""
}

// Memory returns a copy of the named memory cell.
func (w *World) Memory(name string) []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.buildings {
		if b.Name == name {
			return slices.Clone(b.Memory)
		}
	}
	return nil
}

// DisplayNames lists the displays in placement order.
func (w *World) DisplayNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var names []string
	for _, b := range w.buildings {
		if b.Display != nil && !b.dead {
			names = append(names, b.Name)
		}
	}
	return names
}

// DisplayImage returns a copy of the named display's pixels.
func (w *World) DisplayImage(name string) (*image.RGBA, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.buildings {
		if b.Name == name && b.Display != nil {
			return b.Display.Snapshot(), true
		}
	}
	return nil, false
}

// Tick returns the number of simulated ticks.
func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Executed returns the number of instructions run so far.
func (w *World) Executed() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.executed
}

func asEntity(v *logic.Var) any {
	if v == nil || !v.IsObj() {
		return nil
	}
	switch e := v.Obj().(type) {
	case *Building:
		if e.dead {
			return nil
		}
		return e
	case *Unit:
		if e.dead {
			return nil
		}
		return e
	}
	return nil
}

func num(v *logic.Var) float64 {
	if v == nil {
		return 0
	}
	return v.Num()
}

func content(v *logic.Var) (logic.Content, bool) {
	if v == nil || !v.IsObj() {
		return "", false
	}
	switch c := v.Obj().(type) {
	case logic.Content:
		return c, true
	case string:
		return logic.Content(c), true
	}
	return "", false
}
