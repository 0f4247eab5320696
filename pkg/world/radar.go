package world

import (
	"cmp"
	"math"
	"slices"

	"github.com/zurustar/procscript/pkg/logic"
)

func matchesTarget(t logic.RadarTarget, source int, u *Unit) bool {
	switch t {
	case logic.TargetAny:
		return true
	case logic.TargetEnemy:
		return u.Team != source
	case logic.TargetAlly:
		return u.Team == source
	case logic.TargetPlayer:
		return false
	case logic.TargetAttacker:
		return u.Attacker
	case logic.TargetFlying:
		return u.Flying
	case logic.TargetBoss:
		return u.Boss
	case logic.TargetGround:
		return !u.Flying
	}
	return false
}

// radar scans the units in range of the source. Candidates are ordered best
// first by the sort key; order 1 (or any non-zero order) picks the best, 0 the worst.
func (w *World) radar(in *logic.Radar) {
	in.Result.SetObj(nil)

	source := entityOf(in.Source)
	sx, sy, ok := position(source)
	if !ok {
		return
	}
	team, _ := teamOf(source)
	rng := rangeOf(source)

	type candidate struct {
		unit *Unit
		key  float64
	}
	var found []candidate
	for _, u := range w.units {
		if u.dead || logic.Entity(u) == source {
			continue
		}
		d := dist(sx, sy, u.X, u.Y)
		if d > rng {
			continue
		}
		if !matchesTarget(in.T1, team, u) || !matchesTarget(in.T2, team, u) || !matchesTarget(in.T3, team, u) {
			continue
		}
		found = append(found, candidate{unit: u, key: sortKey(in.Sort, d, u)})
	}
	if len(found) == 0 {
		return
	}

	slices.SortStableFunc(found, func(a, b candidate) int {
		if c := cmp.Compare(b.key, a.key); c != 0 {
			return c
		}
		return cmp.Compare(a.unit.ID, b.unit.ID)
	})
	if num(in.Order) != 0 {
		in.Result.SetObj(found[0].unit)
	} else {
		in.Result.SetObj(found[len(found)-1].unit)
	}
}

func sortKey(s logic.RadarSort, d float64, u *Unit) float64 {
	switch s {
	case logic.SortHealth:
		return u.Health
	case logic.SortShield:
		return u.Shield
	case logic.SortArmor:
		return u.Armor
	case logic.SortMaxHealth:
		return u.MaxHealth
	default:
		return -d
	}
}

func rangeOf(e logic.Entity) float64 {
	switch v := e.(type) {
	case *Building:
		if v.Range > 0 {
			return v.Range
		}
	case *Unit:
		if v.Range > 0 {
			return v.Range
		}
	}
	return math.Inf(1)
}

// locate searches from the bound unit. Without a match Found is false and
// the other outputs keep their values.
func (w *World) locate(in *logic.UnitLocate) {
	in.Found.SetBool(false)
	in.Building.SetObj(nil)

	u, ok := asEntity(w.reg(logic.RegUnit)).(*Unit)
	if !ok {
		return
	}

	best := math.Inf(1)
	var bx, by float64
	var building *Building

	consider := func(x, y float64, b *Building) {
		if d := dist(u.X, u.Y, x, y); d < best {
			best, bx, by, building = d, x, y, b
		}
	}

	switch in.Type {
	case logic.LocateBuilding:
		enemy := in.Enemy.Bool()
		for _, b := range w.buildings {
			if b.dead || !b.HasFlag(in.Flag) || (b.Team != u.Team) != enemy {
				continue
			}
			consider(b.X, b.Y, b)
		}
	case logic.LocateOre:
		item, ok := content(in.Ore)
		if !ok {
			return
		}
		for _, o := range w.ores {
			if o.Item == item {
				consider(float64(o.X), float64(o.Y), nil)
			}
		}
	case logic.LocateSpawn:
		for _, p := range w.spawns {
			consider(p.X, p.Y, nil)
		}
	case logic.LocateDamaged:
		for _, b := range w.buildings {
			if !b.dead && b.Team == u.Team && b.Health < b.MaxHealth {
				consider(b.X, b.Y, b)
			}
		}
	}

	if math.IsInf(best, 1) {
		return
	}
	in.OutX.SetNum(bx)
	in.OutY.SetNum(by)
	in.Found.SetBool(true)
	if building != nil {
		in.Building.SetObj(building)
	}
}
