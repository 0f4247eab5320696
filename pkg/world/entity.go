package world

import (
	"fmt"
	"math"
	"slices"

	"github.com/zurustar/procscript/pkg/logic"
)

// Block names with behavior of their own.
const (
	BlockProcessor  logic.Content = "micro-processor"
	BlockMemoryCell logic.Content = "memory-cell"
	BlockMemoryBank logic.Content = "memory-bank"
	BlockDisplay    logic.Content = "logic-display"
	BlockLargeDisp  logic.Content = "large-logic-display"
	BlockMessage    logic.Content = "message"
	BlockSwitch     logic.Content = "switch"
	BlockContainer  logic.Content = "container"
	BlockCore       logic.Content = "core-shard"
	BlockAir        logic.Content = "air"
)

// Building is a placed block. Fields are owned by the World and must only be
// read through World methods while a session may be running.
type Building struct {
	ID    int
	Name  string
	Type  logic.Content
	X, Y  float64
	Size  float64
	Team  int
	Flags []logic.BlockFlag

	Health, MaxHealth float64
	Range             float64
	Rotation          float64
	Enabled           bool
	Config            any
	Color             float64

	Shooting       bool
	ShootX, ShootY float64

	Items        map[logic.Content]int
	ItemCapacity int

	// Sensors holds extra values reported by sense, keyed by LAccess name.
	Sensors map[string]float64

	Memory  []float64
	Message string
	Display *Display

	links []link
	world *World
	dead  bool
}

type link struct {
	name   string
	target *Building
}

// EntityID implements logic.Entity.
func (b *Building) EntityID() int { return b.ID }

// Block implements logic.Building.
func (b *Building) Block() logic.Content { return b.Type }

// String renders the building the way print shows it.
func (b *Building) String() string { return string(b.Type) }

// Links implements logic.Processor. Buildings that are not processors have no links.
func (b *Building) Links() []logic.Link {
	if b.world != nil {
		b.world.mu.Lock()
		defer b.world.mu.Unlock()
	}
	out := make([]logic.Link, len(b.links))
	for i, l := range b.links {
		out[i].Name = l.name
		if l.target != nil && !l.target.dead {
			out[i].Target = l.target
		}
	}
	return out
}

// HasFlag reports whether the building belongs to flag's group.
func (b *Building) HasFlag(flag logic.BlockFlag) bool {
	return slices.Contains(b.Flags, flag)
}

func (b *Building) totalItems() int {
	n := 0
	for _, c := range b.Items {
		n += c
	}
	return n
}

// firstItem returns the stored item with the lowest name, so results do not
// depend on map order.
func (b *Building) firstItem() (logic.Content, bool) {
	var first logic.Content
	for item, n := range b.Items {
		if n > 0 && (first == "" || item < first) {
			first = item
		}
	}
	return first, first != ""
}

// Unit is a mobile entity.
type Unit struct {
	ID        int
	Type      logic.Content
	X, Y      float64
	Team      int
	Flying    bool
	Boss      bool
	Attacker  bool
	Speed     float64
	Range     float64
	Flag      float64
	Health    float64
	MaxHealth float64
	Shield    float64
	Armor     float64

	Item         logic.Content
	Stack        int
	ItemCapacity int

	// Controlled is set while a processor has the unit bound.
	Controlled bool
	Boosting   bool
	Shooting   bool
	AimX, AimY float64
	Mining     bool
	MineX      float64
	MineY      float64

	moving         bool
	moveX, moveY   float64
	approachRadius float64

	Plans   []BuildPlan
	Payload []any

	dead bool
}

// EntityID implements logic.Entity.
func (u *Unit) EntityID() int { return u.ID }

// UnitType implements logic.Unit.
func (u *Unit) UnitType() logic.Content { return u.Type }

// String renders the unit the way print shows it.
func (u *Unit) String() string { return string(u.Type) }

// Destination returns where the unit is heading.
func (u *Unit) Destination() (x, y float64, ok bool) {
	return u.moveX, u.moveY, u.moving
}

// BuildPlan is a queued construction order.
type BuildPlan struct {
	X, Y     int
	Block    logic.Content
	Rotation int
	Config   any
}

// Ore is an ore overlay on one tile.
type Ore struct {
	X, Y int
	Item logic.Content
}

// Point is a tile position.
type Point struct {
	X, Y float64
}

func dist(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

func position(e logic.Entity) (x, y float64, ok bool) {
	switch v := e.(type) {
	case *Building:
		return v.X, v.Y, true
	case *Unit:
		return v.X, v.Y, true
	}
	return 0, 0, false
}

func teamOf(e any) (int, bool) {
	switch v := e.(type) {
	case *Building:
		return v.Team, true
	case *Unit:
		return v.Team, true
	}
	return 0, false
}

func describe(e any) string {
	switch v := e.(type) {
	case *Building:
		return fmt.Sprintf("%s#%d", v.Type, v.ID)
	case *Unit:
		return fmt.Sprintf("%s#%d", v.Type, v.ID)
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", e)
}
