package bridge

import (
	"time"

	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// CPU is the handle of the processor running the script. It has every
// building method plus access to links, unit binding and the canvas.
type CPU struct {
	*handle
	canvas *Canvas
}

var cpuMethods = map[string]handleMethod{
	"links":           (*handle).links,
	"link":            (*handle).link,
	"linkArray":       (*handle).linkArray,
	"linkNameIsValid": (*handle).linkNameIsValid,
	"getLinkNames":    (*handle).linkNames,
	"bind":            (*handle).bind,
	"sleep":           (*handle).sleep,
	"yield":           (*handle).yield,
	"print":           (*handle).print,
	"format":          (*handle).format,
}

func (h *handle) processorLinks() []logic.Link {
	if p, ok := h.target.Obj().(logic.Processor); ok {
		return p.Links()
	}
	return nil
}

// links returns an object keyed by link name. Links whose building is gone are left out.
func (h *handle) links(c *sandbox.Call) (any, error) {
	r := sandbox.NewRecord()
	for _, l := range h.processorLinks() {
		if l.Target != nil {
			r.Set(l.Name, &Building{handle: h.b.entityHandle(l.Target)})
		}
	}
	return r, nil
}

func (h *handle) link(c *sandbox.Call) (any, error) {
	name, err := c.String(0)
	if err != nil {
		return nil, err
	}
	for _, l := range h.processorLinks() {
		if l.Name == name && l.Target != nil {
			return &Building{handle: h.b.entityHandle(l.Target)}, nil
		}
	}
	return nil, nil
}

func (h *handle) linkArray(c *sandbox.Call) (any, error) {
	out := []any{}
	for _, l := range h.processorLinks() {
		if l.Target != nil {
			out = append(out, &Building{handle: h.b.entityHandle(l.Target)})
		}
	}
	return out, nil
}

func (h *handle) linkNameIsValid(c *sandbox.Call) (any, error) {
	name, err := c.String(0)
	if err != nil {
		return nil, err
	}
	for _, l := range h.processorLinks() {
		if l.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (h *handle) linkNames(c *sandbox.Call) (any, error) {
	out := []any{}
	for _, l := range h.processorLinks() {
		out = append(out, l.Name)
	}
	return out, nil
}

// bind takes a unit type name or a unit handle and returns the bound unit or null.
func (h *handle) bind(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(1); err != nil {
		return nil, err
	}
	if s, ok := c.Arg(0).(string); ok {
		h.p[0].SetObj(logic.Content(s))
	} else {
		e, err := entityArg(c, 0)
		if err != nil {
			return nil, c.TypeErrorf("argument 1 must be a unit type or a unit")
		}
		h.p[0].SetObj(e)
	}
	if err := h.b.run(c, &logic.UnitBind{Type: h.p[0]}); err != nil {
		return nil, err
	}
	if u, ok := h.b.exec.Var(logic.RegUnit).Obj().(logic.Unit); ok {
		return &Unit{handle: h.b.entityHandle(u)}, nil
	}
	return nil, nil
}

// sleep(ms) holds the script at its next yield until ms have passed.
// Like every other host call it yields even when the argument is bad.
func (h *handle) sleep(c *sandbox.Call) (any, error) {
	ms, err := c.Number(0)
	if err == nil && h.b.sleeper != nil && ms > 0 {
		h.b.sleeper.Sleep(time.Duration(ms * float64(time.Millisecond)))
	}
	if yerr := c.Runtime.Yield(); yerr != nil {
		return nil, yerr
	}
	if err != nil {
		return nil, err
	}
	return sandbox.Undefined, nil
}

func (h *handle) yield(c *sandbox.Call) (any, error) {
	return sandbox.Undefined, c.Runtime.Yield()
}

// print appends to the processor's text buffer. Numbers print the way the processor formats them.
func (h *handle) print(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(1); err != nil {
		return nil, err
	}
	if err := h.b.marshal(c, 0, h.p[0]); err != nil {
		return nil, err
	}
	return sandbox.Undefined, h.b.run(c, &logic.Print{Value: h.p[0]})
}

func (h *handle) format(c *sandbox.Call) (any, error) {
	v := logic.NewVar("format")
	if err := h.b.marshal(c, 0, v); err != nil {
		return nil, err
	}
	return v.String(), nil
}
