package world

import (
	"github.com/zurustar/procscript/pkg/logic"
)

// sense writes the requested property of the target, or null when the target
// or the property does not exist.
func (w *World) sense(in *logic.Sense) {
	target := asEntity(in.Target)
	if target == nil || in.Sensor == nil || !in.Sensor.IsObj() {
		in.Result.SetObj(nil)
		return
	}

	var access logic.LAccess
	switch s := in.Sensor.Obj().(type) {
	case logic.LAccess:
		access = s
	case logic.Content:
		w.senseItem(target, s, in.Result)
		return
	case string:
		if a, ok := logic.Parse(logic.Senseable, s); ok {
			access = a
		} else {
			w.senseItem(target, logic.Content(s), in.Result)
			return
		}
	default:
		in.Result.SetObj(nil)
		return
	}

	switch t := target.(type) {
	case *Building:
		senseBuilding(t, access, in.Result)
	case *Unit:
		w.senseUnit(t, access, in.Result)
	}
}

func (w *World) senseItem(target any, item logic.Content, out *logic.Var) {
	switch t := target.(type) {
	case *Building:
		out.SetNum(float64(t.Items[item]))
	case *Unit:
		if t.Item == item {
			out.SetNum(float64(t.Stack))
		} else {
			out.SetNum(0)
		}
	}
}

func senseBuilding(b *Building, access logic.LAccess, out *logic.Var) {
	if v, ok := b.Sensors[string(access)]; ok {
		out.SetNum(v)
		return
	}
	switch access {
	case logic.AccessX:
		out.SetNum(b.X)
	case logic.AccessY:
		out.SetNum(b.Y)
	case logic.AccessSize:
		out.SetNum(b.Size)
	case logic.AccessHealth:
		out.SetNum(b.Health)
	case logic.AccessMaxHealth:
		out.SetNum(b.MaxHealth)
	case logic.AccessDead:
		out.SetBool(b.dead)
	case logic.AccessTeam:
		out.SetNum(float64(b.Team))
	case logic.AccessType:
		out.SetObj(b.Type)
	case logic.AccessEnabled:
		out.SetBool(b.Enabled)
	case logic.AccessRotation:
		out.SetNum(b.Rotation)
	case logic.AccessRange:
		out.SetNum(b.Range)
	case logic.AccessShooting:
		out.SetBool(b.Shooting)
	case logic.AccessShootX:
		out.SetNum(b.ShootX)
	case logic.AccessShootY:
		out.SetNum(b.ShootY)
	case logic.AccessColor:
		out.SetNum(b.Color)
	case logic.AccessTotalItems:
		out.SetNum(float64(b.totalItems()))
	case logic.AccessItemCapacity:
		out.SetNum(float64(b.ItemCapacity))
	case logic.AccessFirstItem:
		if item, ok := b.firstItem(); ok {
			out.SetObj(item)
		} else {
			out.SetObj(nil)
		}
	case logic.AccessMemoryCapacity:
		out.SetNum(float64(len(b.Memory)))
	case logic.AccessConfig:
		switch c := b.Config.(type) {
		case nil:
			out.SetObj(nil)
		case float64:
			out.SetNum(c)
		default:
			out.SetObj(c)
		}
	case logic.AccessEfficiency:
		if b.Enabled {
			out.SetNum(1)
		} else {
			out.SetNum(0)
		}
	case logic.AccessName:
		out.SetObj(nil)
	default:
		out.SetNum(0)
	}
}

func (w *World) senseUnit(u *Unit, access logic.LAccess, out *logic.Var) {
	switch access {
	case logic.AccessX:
		out.SetNum(u.X)
	case logic.AccessY:
		out.SetNum(u.Y)
	case logic.AccessHealth:
		out.SetNum(u.Health)
	case logic.AccessMaxHealth:
		out.SetNum(u.MaxHealth)
	case logic.AccessDead:
		out.SetBool(u.dead)
	case logic.AccessTeam:
		out.SetNum(float64(u.Team))
	case logic.AccessType:
		out.SetObj(u.Type)
	case logic.AccessFlag:
		out.SetNum(u.Flag)
	case logic.AccessRange:
		out.SetNum(u.Range)
	case logic.AccessSpeed:
		out.SetNum(u.Speed)
	case logic.AccessShooting:
		out.SetBool(u.Shooting)
	case logic.AccessShootX:
		out.SetNum(u.AimX)
	case logic.AccessShootY:
		out.SetNum(u.AimY)
	case logic.AccessBoosting:
		out.SetBool(u.Boosting)
	case logic.AccessMining:
		out.SetBool(u.Mining)
	case logic.AccessMineX:
		out.SetNum(u.MineX)
	case logic.AccessMineY:
		out.SetNum(u.MineY)
	case logic.AccessTotalItems:
		out.SetNum(float64(u.Stack))
	case logic.AccessItemCapacity:
		out.SetNum(float64(u.ItemCapacity))
	case logic.AccessFirstItem:
		if u.Stack > 0 {
			out.SetObj(u.Item)
		} else {
			out.SetObj(nil)
		}
	case logic.AccessControlled:
		out.SetBool(u.Controlled)
	case logic.AccessPayloadCount:
		out.SetNum(float64(len(u.Payload)))
	case logic.AccessSize:
		out.SetNum(1)
	case logic.AccessName:
		out.SetObj(nil)
	default:
		out.SetNum(0)
	}
}

// control only affects buildings of the processor's team.
func (w *World) control(in *logic.Control) {
	b, ok := asEntity(in.Target).(*Building)
	if !ok || b.Team != w.self.Team {
		return
	}
	switch in.Type {
	case logic.AccessEnabled:
		b.Enabled = in.P1.Bool()
	case logic.AccessShoot:
		b.ShootX, b.ShootY = num(in.P1), num(in.P2)
		b.Shooting = in.P3.Bool()
	case logic.AccessShootP:
		if x, y, ok := position(entityOf(in.P1)); ok {
			b.ShootX, b.ShootY = x, y
		}
		b.Shooting = in.P2.Bool()
	case logic.AccessConfig:
		if in.P1.IsObj() {
			b.Config = in.P1.Obj()
		} else {
			b.Config = in.P1.Num()
		}
	case logic.AccessColor:
		b.Color = packColor(num(in.P1), num(in.P2), num(in.P3))
	}
}

func entityOf(v *logic.Var) logic.Entity {
	if e, ok := asEntity(v).(logic.Entity); ok {
		return e
	}
	return nil
}

// read leaves Result untouched when the address is out of range.
func (w *World) read(in *logic.Read) {
	b, ok := asEntity(in.Target).(*Building)
	if !ok || b.Memory == nil {
		return
	}
	addr := int(num(in.Address))
	if addr >= 0 && addr < len(b.Memory) {
		in.Result.SetNum(b.Memory[addr])
	}
}

func (w *World) write(in *logic.Write) {
	b, ok := asEntity(in.Target).(*Building)
	if !ok || b.Memory == nil {
		return
	}
	addr := int(num(in.Address))
	if addr >= 0 && addr < len(b.Memory) {
		b.Memory[addr] = num(in.Value)
	}
}

func (w *World) print(in *logic.Print) {
	s := in.Value.String()
	if room := MaxTextBuffer - w.text.Len(); room < len(s) {
		if room <= 0 {
			return
		}
		s = s[:room]
	}
	w.text.WriteString(s)
}

// printFlush clears the text buffer even when the target is not a message block.
func (w *World) printFlush(in *logic.PrintFlush) {
	if b, ok := asEntity(in.Target).(*Building); ok && b.Type == BlockMessage {
		b.Message = w.text.String()
	}
	w.text.Reset()
}
