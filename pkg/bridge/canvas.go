package bridge

import (
	"github.com/zurustar/procscript/pkg/logic"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// Canvas queues draw commands in the processor's graphics buffer.
// flush(display) hands the buffer to a display.
type Canvas struct {
	b *Bridge
	p [6]*logic.Var
}

func (cv *Canvas) String() string { return "canvas" }

type canvasMethod func(cv *Canvas, c *sandbox.Call) (any, error)

func canvasMethods() map[string]sandbox.MethodFunc {
	set := map[string]canvasMethod{
		"clear":     numericDraw(logic.DrawClear, 3),
		"color":     numericDraw(logic.DrawColor, 4),
		"stroke":    numericDraw(logic.DrawStroke, 1),
		"line":      numericDraw(logic.DrawLine, 4),
		"rect":      numericDraw(logic.DrawRect, 4),
		"lineRect":  numericDraw(logic.DrawLineRect, 4),
		"poly":      numericDraw(logic.DrawPoly, 5),
		"linePoly":  numericDraw(logic.DrawLinePoly, 5),
		"triangle":  numericDraw(logic.DrawTriangle, 6),
		"translate": numericDraw(logic.DrawTranslate, 2),
		"scale":     numericDraw(logic.DrawScale, 2),
		"rotate":    numericDraw(logic.DrawRotate, 1),
		"reset":     numericDraw(logic.DrawReset, 0),
		"image":     (*Canvas).image,
		"print":     (*Canvas).print,
		"flush":     (*Canvas).flush,
	}
	out := make(map[string]sandbox.MethodFunc, len(set))
	for name, fn := range set {
		out[name] = func(c *sandbox.Call) (any, error) {
			return fn(c.Recv.(*Canvas), c)
		}
	}
	return out
}

func (cv *Canvas) draw(c *sandbox.Call, in *logic.Draw) (any, error) {
	in.P1, in.P2, in.P3, in.P4, in.P5, in.P6 = cv.p[0], cv.p[1], cv.p[2], cv.p[3], cv.p[4], cv.p[5]
	return sandbox.Undefined, cv.b.run(c, in)
}

// numericDraw builds a draw method taking n numbers. Unused slots are zeroed.
func numericDraw(typ logic.GraphicsType, n int) canvasMethod {
	return func(cv *Canvas, c *sandbox.Call) (any, error) {
		if err := c.Runtime.Yield(); err != nil {
			return nil, err
		}
		if err := c.Require(n); err != nil {
			return nil, err
		}
		for i, p := range cv.p {
			if i >= n {
				p.SetNum(0)
				continue
			}
			v, err := c.Number(i)
			if err != nil {
				return nil, err
			}
			p.SetNum(v)
		}
		return cv.draw(c, &logic.Draw{Type: typ})
	}
}

// image(x, y, content, size, rotation)
func (cv *Canvas) image(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(5); err != nil {
		return nil, err
	}
	name, err := c.String(2)
	if err != nil {
		return nil, err
	}
	for _, i := range []int{0, 1, 3, 4} {
		v, err := c.Number(i)
		if err != nil {
			return nil, err
		}
		cv.p[i].SetNum(v)
	}
	cv.p[2].SetObj(logic.Content(name))
	cv.p[5].SetNum(0)
	return cv.draw(c, &logic.Draw{Type: logic.DrawImage})
}

// print(text, x, y, align). Unknown or missing align is bottomLeft.
func (cv *Canvas) print(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(3); err != nil {
		return nil, err
	}
	text, err := c.String(0)
	if err != nil {
		return nil, err
	}
	for i := range 2 {
		v, err := c.Number(i + 1)
		if err != nil {
			return nil, err
		}
		cv.p[i].SetNum(v)
	}
	align := logic.AlignBottomLeft
	if s, ok := c.Arg(3).(string); ok {
		if a, ok := logic.Parse(logic.Aligns, s); ok {
			align = a
		}
	}
	return cv.draw(c, &logic.Draw{Type: logic.DrawPrint, Text: text, Align: align})
}

func (cv *Canvas) flush(c *sandbox.Call) (any, error) {
	if err := c.Runtime.Yield(); err != nil {
		return nil, err
	}
	if err := c.Require(1); err != nil {
		return nil, err
	}
	e, err := entityArg(c, 0)
	if err != nil {
		return nil, err
	}
	target := logic.NewVar("display")
	target.SetObj(e)
	return sandbox.Undefined, cv.b.run(c, &logic.DrawFlush{Target: target})
}
