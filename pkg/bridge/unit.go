package bridge

import (
	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// Unit is a handle to a unit. Control calls bind it first when another
// unit is bound.
type Unit struct {
	*handle
}

var unitMethods = map[string]handleMethod{
	"idle":             simpleControl(logic.UnitIdle),
	"stop":             simpleControl(logic.UnitStop),
	"autoPathFind":     simpleControl(logic.UnitAutoPathfind),
	"payloadDrop":      simpleControl(logic.UnitPayDrop),
	"payloadEnter":     simpleControl(logic.UnitPayEnter),
	"move":             pointControl(logic.UnitMove),
	"pathfind":         pointControl(logic.UnitPathfind),
	"mine":             pointControl(logic.UnitMine),
	"approach":         (*handle).approach,
	"within":           (*handle).within,
	"boost":            (*handle).boost,
	"target":           (*handle).aim,
	"targetp":          (*handle).targetp,
	"itemTake":         (*handle).itemTake,
	"itemDrop":         (*handle).itemDrop,
	"payloadTakeUnit":  payloadTake(true),
	"payloadTakeBlock": payloadTake(false),
	"build":            (*handle).build,
	"flag":             (*handle).flag,
	"getBlock":         (*handle).getBlock,
	"locateBuilding":   (*handle).locateBuilding,
	"locateOre":        (*handle).locateOre,
	"locateSpawn":      locateSimple(logic.LocateSpawn),
	"locateDamaged":    locateSimple(logic.LocateDamaged),
	"unbind":           simpleControl(logic.UnitUnbind),
}

// rebind makes this unit the bound one.
func (h *handle) rebind(c *sandbox.Call) error {
	if sameEntity(h.b.exec.Var(logic.RegUnit).Obj(), h.entity()) {
		return nil
	}
	return h.b.run(c, &logic.UnitBind{Type: h.target})
}

func (h *handle) unitControl(c *sandbox.Call, typ logic.UnitControlType) error {
	if err := h.rebind(c); err != nil {
		return err
	}
	return h.b.run(c, &logic.UnitControl{Type: typ, P1: h.p[0], P2: h.p[1], P3: h.p[2], P4: h.p[3], P5: h.p[4]})
}

func simpleControl(typ logic.UnitControlType) handleMethod {
	return func(h *handle, c *sandbox.Call) (any, error) {
		if err := c.Runtime.Yield(); err != nil {
			return nil, err
		}
		return sandbox.Undefined, h.unitControl(c, typ)
	}
}

// numbers copies the first n arguments into p1..pn.
func (h *handle) numbers(c *sandbox.Call, n int) error {
	if err := c.Require(n); err != nil {
		return err
	}
	for i := range n {
		v, err := c.Number(i)
		if err != nil {
			return err
		}
		h.p[i].SetNum(v)
	}
	return nil
}

func pointControl(typ logic.UnitControlType) handleMethod {
	return func(h *handle, c *sandbox.Call) (any, error) {
		if err := c.Runtime.Yield(); err != nil {
			return nil, err
		}
		if err := h.numbers(c, 2); err != nil {
			return nil, err
		}
		return sandbox.Undefined, h.unitControl(c, typ)
	}
}

func (h *handle) approach(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := h.numbers(c, 3); err != nil {
		return nil, err
	}
	return sandbox.Undefined, h.unitControl(c, logic.UnitApproach)
}

func (h *handle) within(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := h.numbers(c, 3); err != nil {
		return nil, err
	}
	h.p[3].SetBool(false)
	if err := h.unitControl(c, logic.UnitWithin); err != nil {
		return nil, err
	}
	return h.p[3].Bool(), nil
}

func (h *handle) boost(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(1); err != nil {
		return nil, err
	}
	h.p[0].SetBool(c.Bool(0))
	return sandbox.Undefined, h.unitControl(c, logic.UnitBoost)
}

func (h *handle) aim(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(3); err != nil {
		return nil, err
	}
	if err := h.numbers(c, 2); err != nil {
		return nil, err
	}
	h.p[2].SetBool(c.Bool(2))
	return sandbox.Undefined, h.unitControl(c, logic.UnitTarget)
}

func (h *handle) targetp(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(2); err != nil {
		return nil, err
	}
	e, err := entityArg(c, 0)
	if err != nil {
		return nil, err
	}
	h.p[0].SetObj(e)
	h.p[1].SetBool(c.Bool(1))
	return sandbox.Undefined, h.unitControl(c, logic.UnitTargetP)
}

// itemTake(building, item, amount)
func (h *handle) itemTake(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(3); err != nil {
		return nil, err
	}
	from, err := entityArg(c, 0)
	if err != nil {
		return nil, err
	}
	item, err := c.String(1)
	if err != nil {
		return nil, err
	}
	amount, err := c.Number(2)
	if err != nil {
		return nil, err
	}
	h.p[0].SetObj(from)
	h.p[1].SetObj(logic.Content(item))
	h.p[2].SetNum(amount)
	return sandbox.Undefined, h.unitControl(c, logic.UnitItemTake)
}

// itemDrop(building, amount)
func (h *handle) itemDrop(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(2); err != nil {
		return nil, err
	}
	to, err := entityArg(c, 0)
	if err != nil {
		return nil, err
	}
	amount, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	h.p[0].SetObj(to)
	h.p[1].SetNum(amount)
	return sandbox.Undefined, h.unitControl(c, logic.UnitItemDrop)
}

func payloadTake(units bool) handleMethod {
	return func(h *handle, c *sandbox.Call) (any, error) {
		if err := c.Runtime.Yield(); err != nil {
			return nil, err
		}
		h.p[0].SetBool(units)
		return sandbox.Undefined, h.unitControl(c, logic.UnitPayTake)
	}
}

// build(x, y, block, rotation, config); config is optional.
func (h *handle) build(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(4); err != nil {
		return nil, err
	}
	if err := h.numbers(c, 2); err != nil {
		return nil, err
	}
	block, err := c.String(2)
	if err != nil {
		return nil, err
	}
	rotation, err := c.Number(3)
	if err != nil {
		return nil, err
	}
	h.p[2].SetObj(logic.Content(block))
	h.p[3].SetNum(rotation)
	if err := h.b.marshal(c, 4, h.p[4]); err != nil {
		return nil, err
	}
	return sandbox.Undefined, h.unitControl(c, logic.UnitBuild)
}

func (h *handle) flag(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := h.numbers(c, 1); err != nil {
		return nil, err
	}
	return sandbox.Undefined, h.unitControl(c, logic.UnitFlag)
}

// getBlock returns {type, building, floor}; every field is null outside the map.
func (h *handle) getBlock(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := h.numbers(c, 2); err != nil {
		return nil, err
	}
	for _, p := range h.p[2:5] {
		p.SetObj(nil)
	}
	if err := h.unitControl(c, logic.UnitGetBlock); err != nil {
		return nil, err
	}
	return sandbox.NewRecord().
		Set("type", h.b.value(h.p[2])).
		Set("building", h.b.value(h.p[3])).
		Set("floor", h.b.value(h.p[4])), nil
}

// locate runs one unit-locate search. Enemy and ore share p1, the position
// goes to p2 and p3, found to p4 and the building to ret.
func (h *handle) locate(c *sandbox.Call, typ logic.LocateType, flag logic.BlockFlag) (any, error) {
	if err := h.rebind(c); err != nil {
		return nil, err
	}
	err := h.b.run(c, &logic.UnitLocate{
		Type:     typ,
		Flag:     flag,
		Enemy:    h.p[0],
		Ore:      h.p[0],
		OutX:     h.p[1],
		OutY:     h.p[2],
		Found:    h.p[3],
		Building: h.ret,
	})
	if err != nil {
		return nil, err
	}
	if !h.p[3].Bool() {
		return nil, nil
	}
	return sandbox.NewRecord().
		Set("x", h.p[1].Num()).
		Set("y", h.p[2].Num()).
		Set("building", h.b.value(h.ret)), nil
}

// locateBuilding(flag, enemy)
func (h *handle) locateBuilding(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(2); err != nil {
		return nil, err
	}
	flag, err := enumArg(c, 0, logic.BlockFlags)
	if err != nil {
		return nil, err
	}
	h.p[0].SetBool(c.Bool(1))
	return h.locate(c, logic.LocateBuilding, flag)
}

func (h *handle) locateOre(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	ore, err := c.String(0)
	if err != nil {
		return nil, err
	}
	h.p[0].SetObj(logic.Content(ore))
	return h.locate(c, logic.LocateOre, "")
}

func locateSimple(typ logic.LocateType) handleMethod {
	return func(h *handle, c *sandbox.Call) (any, error) {
		if err := c.Runtime.Yield(); err != nil {
			return nil, err
		}
		return h.locate(c, typ, "")
	}
}
