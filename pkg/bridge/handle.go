package bridge

import (
	"strings"

	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// handle is the state shared by every entity handle: the entity register
// and the reusable slots arguments and results go through.
type handle struct {
	b      *Bridge
	target *logic.Var
	ret    *logic.Var
	p      [6]*logic.Var
}

type holder interface {
	base() *handle
}

func newSlots() [6]*logic.Var {
	var p [6]*logic.Var
	for i := range p {
		p[i] = logic.NewVar("p" + string(rune('1'+i)))
	}
	return p
}

func (b *Bridge) newHandle(target *logic.Var) *handle {
	return &handle{b: b, target: target, ret: logic.NewVar("ret"), p: newSlots()}
}

func (b *Bridge) entityHandle(e logic.Entity) *handle {
	target := logic.NewVar("target")
	target.SetObj(e)
	return b.newHandle(target)
}

func (h *handle) base() *handle { return h }

func (h *handle) entity() logic.Entity {
	e, _ := h.target.Obj().(logic.Entity)
	return e
}

// Identity makes two handles of one entity equal.
func (h *handle) Identity() any {
	if e := h.entity(); e != nil {
		return e.EntityID()
	}
	return h
}

func (h *handle) String() string {
	return logic.FormatValue(h.target.Obj())
}

func (h *handle) isDisplay() bool {
	b, ok := h.target.Obj().(logic.Building)
	return ok && strings.HasSuffix(string(b.Block()), "display")
}

// handleMethod is a host method implemented on the shared handle state.
type handleMethod func(h *handle, c *sandbox.Call) (any, error)

func methods(sets ...map[string]handleMethod) map[string]sandbox.MethodFunc {
	out := make(map[string]sandbox.MethodFunc)
	for _, set := range sets {
		for name, fn := range set {
			out[name] = func(c *sandbox.Call) (any, error) {
				return fn(c.Recv.(holder).base(), c)
			}
		}
	}
	return out
}

var buildingMethods = map[string]handleMethod{
	"sensor":     (*handle).sensor,
	"shoot":      (*handle).shoot,
	"shootp":     (*handle).shootp,
	"color":      (*handle).color,
	"setConfig":  (*handle).setConfig,
	"setEnabled": (*handle).setEnabled,
	"read":       (*handle).read,
	"write":      (*handle).write,
	"radar":      (*handle).radar,
	"flush":      (*handle).flush,
	"toString":   (*handle).toString,
}

func (h *handle) sensor(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	name, err := c.String(0)
	if err != nil {
		return nil, err
	}
	if access, ok := logic.Parse(logic.Senseable, name); ok {
		h.p[0].SetObj(access)
	} else {
		h.p[0].SetObj(logic.Content(name))
	}
	if err := h.b.run(c, &logic.Sense{Target: h.target, Result: h.ret, Sensor: h.p[0]}); err != nil {
		return nil, err
	}
	return h.b.value(h.ret), nil
}

func (h *handle) control(c *sandbox.Call, typ logic.LAccess) (any, error) {
	err := h.b.run(c, &logic.Control{Type: typ, Target: h.target, P1: h.p[0], P2: h.p[1], P3: h.p[2], P4: h.p[3]})
	return sandbox.Undefined, err
}

func (h *handle) shoot(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(3); err != nil {
		return nil, err
	}
	x, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	y, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	h.p[0].SetNum(x)
	h.p[1].SetNum(y)
	h.p[2].SetBool(c.Bool(2))
	return h.control(c, logic.AccessShoot)
}

func (h *handle) shootp(c *sandbox.Call) (any, error) {
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
	return h.control(c, logic.AccessShootP)
}

func (h *handle) color(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(3); err != nil {
		return nil, err
	}
	for i := range 3 {
		n, err := c.Number(i)
		if err != nil {
			return nil, err
		}
		h.p[i].SetNum(n)
	}
	return h.control(c, logic.AccessColor)
}

func (h *handle) setConfig(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(1); err != nil {
		return nil, err
	}
	if err := h.b.marshal(c, 0, h.p[0]); err != nil {
		return nil, err
	}
	return h.control(c, logic.AccessConfig)
}

func (h *handle) setEnabled(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(1); err != nil {
		return nil, err
	}
	h.p[0].SetBool(c.Bool(0))
	return h.control(c, logic.AccessEnabled)
}

// read returns null for addresses outside the memory.
func (h *handle) read(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	addr, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	h.p[0].SetNum(addr)
	h.ret.SetObj(nil)
	if err := h.b.run(c, &logic.Read{Target: h.target, Address: h.p[0], Result: h.ret}); err != nil {
		return nil, err
	}
	return h.b.value(h.ret), nil
}

func (h *handle) write(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(2); err != nil {
		return nil, err
	}
	addr, err := c.Number(0)
	if err != nil {
		return nil, err
	}
	value, err := c.Number(1)
	if err != nil {
		return nil, err
	}
	h.p[0].SetNum(addr)
	h.p[1].SetNum(value)
	return sandbox.Undefined, h.b.run(c, &logic.Write{Target: h.target, Address: h.p[0], Value: h.p[1]})
}

// radar(target1, target2, target3, order, sort) returns the match or null.
func (h *handle) radar(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(5); err != nil {
		return nil, err
	}
	var targets [3]logic.RadarTarget
	for i := range targets {
		t, err := enumArg(c, i, logic.RadarTargets)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}
	order, err := c.Number(3)
	if err != nil {
		return nil, err
	}
	sort, err := enumArg(c, 4, logic.RadarSorts)
	if err != nil {
		return nil, err
	}
	h.p[0].SetNum(order)
	err = h.b.run(c, &logic.Radar{
		T1: targets[0], T2: targets[1], T3: targets[2],
		Sort:   sort,
		Source: h.target,
		Order:  h.p[0],
		Result: h.ret,
	})
	if err != nil {
		return nil, err
	}
	if !h.ret.IsObj() {
		return nil, nil
	}
	return h.b.value(h.ret), nil
}

// flush sends the draw buffer to displays and the text buffer to anything else.
func (h *handle) flush(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	var inst logic.Instruction = &logic.PrintFlush{Target: h.target}
	if h.isDisplay() {
		inst = &logic.DrawFlush{Target: h.target}
	}
	return sandbox.Undefined, h.b.run(c, inst)
}

func (h *handle) toString(c *sandbox.Call) (any, error) {
	return h.String(), nil
}

// Building is a handle to a linked or found building.
type Building struct {
	*handle
}
