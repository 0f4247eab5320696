package world

import (
	"math"

	"github.com/zurustar/procscript/pkg/logic"
)

// bind sets @unit. A content argument cycles through the processor team's
// units of that type, an entity argument binds that unit directly.
func (w *World) bind(in *logic.UnitBind) {
	unitReg := w.reg(logic.RegUnit)
	prev, _ := asEntity(unitReg).(*Unit)

	next := w.nextUnit(in.Type, prev)
	if prev != nil && prev != next {
		prev.Controlled = false
	}
	if next == nil {
		unitReg.SetObj(nil)
		return
	}
	next.Controlled = true
	unitReg.SetObj(next)
}

func (w *World) nextUnit(arg *logic.Var, prev *Unit) *Unit {
	if u, ok := asEntity(arg).(*Unit); ok {
		if u.Team != w.self.Team {
			return nil
		}
		return u
	}
	kind, ok := content(arg)
	if !ok {
		return nil
	}

	var candidates []*Unit
	for _, u := range w.units {
		if !u.dead && u.Type == kind && u.Team == w.self.Team {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	for i, u := range candidates {
		if u == prev {
			return candidates[(i+1)%len(candidates)]
		}
	}
	return candidates[0]
}

// unitControl makes the bound unit act. Outputs go to P3..P5 (getBlock) or P4 (within).
// Without a bound unit it does nothing.
func (w *World) unitControl(in *logic.UnitControl) {
	unitReg := w.reg(logic.RegUnit)
	u, ok := asEntity(unitReg).(*Unit)
	if !ok {
		w.log.Debug("Unit control without bound unit", "type", in.Type)
		return
	}

	switch in.Type {
	case logic.UnitIdle:
		u.moving = false
	case logic.UnitStop:
		u.moving, u.Mining, u.Shooting = false, false, false
	case logic.UnitMove, logic.UnitPathfind:
		u.moveX, u.moveY, u.approachRadius, u.moving = num(in.P1), num(in.P2), 0, true
	case logic.UnitApproach:
		u.moveX, u.moveY, u.approachRadius, u.moving = num(in.P1), num(in.P2), num(in.P3), true
	case logic.UnitAutoPathfind:
		if core := w.nearestEnemyCore(u); core != nil {
			u.moveX, u.moveY, u.approachRadius, u.moving = core.X, core.Y, 0, true
		}
	case logic.UnitBoost:
		u.Boosting = in.P1.Bool()
	case logic.UnitTarget:
		u.AimX, u.AimY, u.Shooting = num(in.P1), num(in.P2), in.P3.Bool()
	case logic.UnitTargetP:
		if x, y, ok := position(entityOf(in.P1)); ok {
			u.AimX, u.AimY = x, y
		}
		u.Shooting = in.P2.Bool()
	case logic.UnitItemDrop:
		w.itemDrop(u, in)
	case logic.UnitItemTake:
		w.itemTake(u, in)
	case logic.UnitPayDrop:
		w.payDrop(u)
	case logic.UnitPayTake:
		w.payTake(u, in.P1.Bool())
	case logic.UnitPayEnter:
		if b := w.buildingAt(int(math.Round(u.X)), int(math.Round(u.Y))); b != nil && b.Team == u.Team {
			u.dead = true
			u.Controlled = false
			unitReg.SetObj(nil)
		}
	case logic.UnitMine:
		x, y := num(in.P1), num(in.P2)
		_, hasOre := w.oreAt(int(x), int(y))
		u.Mining = hasOre && dist(u.X, u.Y, x, y) <= MineRange
		if u.Mining {
			u.MineX, u.MineY = x, y
		}
	case logic.UnitFlag:
		u.Flag = num(in.P1)
	case logic.UnitBuild:
		block, ok := content(in.P3)
		if !ok {
			return
		}
		var config any
		if in.P5.IsObj() {
			config = in.P5.Obj()
		}
		u.Plans = append(u.Plans, BuildPlan{
			X:        int(num(in.P1)),
			Y:        int(num(in.P2)),
			Block:    block,
			Rotation: int(num(in.P4)),
			Config:   config,
		})
	case logic.UnitGetBlock:
		w.getBlock(in)
	case logic.UnitWithin:
		in.P4.SetBool(dist(u.X, u.Y, num(in.P1), num(in.P2)) <= num(in.P3))
	case logic.UnitUnbind:
		u.Controlled = false
		u.moving = false
		unitReg.SetObj(nil)
	}
}

func (w *World) nearestEnemyCore(u *Unit) *Building {
	var best *Building
	bestDist := math.Inf(1)
	for _, b := range w.buildings {
		if b.dead || b.Team == u.Team || !b.HasFlag(logic.FlagCore) {
			continue
		}
		if d := dist(u.X, u.Y, b.X, b.Y); d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

func (w *World) itemDrop(u *Unit, in *logic.UnitControl) {
	b, ok := asEntity(in.P1).(*Building)
	if !ok || u.Stack == 0 || dist(u.X, u.Y, b.X, b.Y) > ItemTransferRange {
		return
	}
	amount := min(int(num(in.P2)), u.Stack)
	if b.ItemCapacity > 0 {
		amount = min(amount, b.ItemCapacity-b.totalItems())
	}
	if amount <= 0 {
		return
	}
	b.Items[u.Item] += amount
	u.Stack -= amount
	if u.Stack == 0 {
		u.Item = ""
	}
}

func (w *World) itemTake(u *Unit, in *logic.UnitControl) {
	b, ok := asEntity(in.P1).(*Building)
	item, hasItem := content(in.P2)
	if !ok || !hasItem || dist(u.X, u.Y, b.X, b.Y) > ItemTransferRange {
		return
	}
	if u.Stack > 0 && u.Item != item {
		return
	}
	amount := min(int(num(in.P3)), b.Items[item], u.ItemCapacity-u.Stack)
	if amount <= 0 {
		return
	}
	b.Items[item] -= amount
	u.Item = item
	u.Stack += amount
}

// payTake picks up the closest allied unit in range, or the building under the unit.
func (w *World) payTake(u *Unit, units bool) {
	if units {
		var best *Unit
		bestDist := PayloadRange
		for _, o := range w.units {
			if o == u || o.dead || o.Team != u.Team {
				continue
			}
			if d := dist(u.X, u.Y, o.X, o.Y); d <= bestDist {
				best, bestDist = o, d
			}
		}
		if best != nil {
			best.dead = true
			u.Payload = append(u.Payload, best)
		}
		return
	}
	b := w.buildingAt(int(math.Round(u.X)), int(math.Round(u.Y)))
	if b == nil || b == w.self || b.Team != u.Team || b.HasFlag(logic.FlagCore) {
		return
	}
	b.dead = true
	u.Payload = append(u.Payload, b)
}

func (w *World) payDrop(u *Unit) {
	if len(u.Payload) == 0 {
		return
	}
	last := u.Payload[len(u.Payload)-1]
	switch p := last.(type) {
	case *Unit:
		p.X, p.Y, p.dead = u.X, u.Y, false
	case *Building:
		x, y := int(math.Round(u.X)), int(math.Round(u.Y))
		if w.buildingAt(x, y) != nil {
			return
		}
		p.X, p.Y, p.dead = float64(x), float64(y), false
	}
	u.Payload = u.Payload[:len(u.Payload)-1]
}

// getBlock writes the block type to P3, the building to P4 and the floor to P5.
// Outside the map all three are null.
func (w *World) getBlock(in *logic.UnitControl) {
	x, y := int(math.Round(num(in.P1))), int(math.Round(num(in.P2)))
	if !w.inBounds(x, y) {
		in.P3.SetObj(nil)
		in.P4.SetObj(nil)
		in.P5.SetObj(nil)
		return
	}
	if b := w.buildingAt(x, y); b != nil {
		in.P3.SetObj(b.Type)
		in.P4.SetObj(b)
	} else {
		in.P3.SetObj(BlockAir)
		in.P4.SetObj(nil)
	}
	in.P5.SetObj(w.floor)
}
