package world

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/procscript/pkg/logic"
)

func drawCmd(typ logic.GraphicsType, p ...float64) *logic.Draw {
	in := &logic.Draw{Type: typ}
	slots := []**logic.Var{&in.P1, &in.P2, &in.P3, &in.P4, &in.P5, &in.P6}
	for i, s := range slots {
		v := logic.NewVar("p")
		if i < len(p) {
			v.SetNum(p[i])
		}
		*s = v
	}
	return in
}

func TestDisplayDrawing(t *testing.T) {
	w := newDefault(t)
	display := objVar(mustBuilding(t, w, "display1"))
	size := DisplaySize

	cmds := []*logic.Draw{
		drawCmd(logic.DrawClear, 255, 0, 0),
		drawCmd(logic.DrawColor, 0, 255, 0, 255),
		drawCmd(logic.DrawRect, 0, 0, 10, 10),
		drawCmd(logic.DrawTranslate, 40, 40),
		drawCmd(logic.DrawColor, 0, 0, 255, 255),
		drawCmd(logic.DrawRect, 0, 0, 5, 5),
		drawCmd(logic.DrawReset),
		drawCmd(logic.DrawStroke, 2),
		drawCmd(logic.DrawLine, 0, 70, 80, 70),
	}
	for _, c := range cmds {
		mustRun(t, w, c)
	}

	if img, _ := w.DisplayImage("display1"); img.RGBAAt(5, size-5) != (color.RGBA{A: 255}) {
		t.Fatalf("display drawn before flush: %v", img.RGBAAt(5, size-5))
	}
	mustRun(t, w, &logic.DrawFlush{Target: display})
	img, ok := w.DisplayImage("display1")
	if !ok {
		t.Fatal("display1 missing")
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"clear", 60, 60, color.RGBA{R: 255, A: 255}},
		{"rect at origin, y up", 5, size - 5, color.RGBA{G: 255, A: 255}},
		{"translated rect", 42, size - 43, color.RGBA{B: 255, A: 255}},
		{"line", 20, size - 70, color.RGBA{B: 255, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}

	b := mustBuilding(t, w, "display1")
	if b.Display.Flushes() != 1 {
		t.Errorf("Flushes() = %d", b.Display.Flushes())
	}
	mustRun(t, w, &logic.DrawFlush{Target: display})
	again, _ := w.DisplayImage("display1")
	if !bytes.Equal(again.Pix, img.Pix) {
		t.Error("second flush redrew the cleared buffer")
	}
}

func TestDisplayText(t *testing.T) {
	w := newDefault(t)
	display := objVar(mustBuilding(t, w, "display1"))

	mustRun(t, w, drawCmd(logic.DrawClear, 0, 0, 0))
	mustRun(t, w, drawCmd(logic.DrawColor, 255, 255, 255, 255))
	text := drawCmd(logic.DrawPrint, 40, 40)
	text.Text = "OK"
	text.Align = logic.AlignCenter
	mustRun(t, w, text)
	mustRun(t, w, &logic.DrawFlush{Target: display})

	img, _ := w.DisplayImage("display1")
	lit := 0
	for y := 0; y < DisplaySize; y++ {
		for x := 0; x < DisplaySize; x++ {
			if img.RGBAAt(x, y).R > 0 {
				lit++
				if x < 30 || x > 50 || y < 30 || y > 50 {
					t.Fatalf("centered text reached (%d, %d)", x, y)
				}
			}
		}
	}
	if lit == 0 {
		t.Error("no text pixels drawn")
	}
}

func TestDrawBufferLimit(t *testing.T) {
	w := newDefault(t)
	for range MaxGraphicsBuffer + 10 {
		mustRun(t, w, drawCmd(logic.DrawStroke, 1))
	}
	if len(w.draws) != MaxGraphicsBuffer {
		t.Errorf("buffer = %d, want %d", len(w.draws), MaxGraphicsBuffer)
	}
	mustRun(t, w, &logic.DrawFlush{Target: objVar(nil)})
	if len(w.draws) != 0 {
		t.Errorf("buffer not cleared: %d", len(w.draws))
	}
}

func TestWriteDisplayPNG(t *testing.T) {
	w := newDefault(t)
	var buf bytes.Buffer
	if err := w.WriteDisplayPNG("display1", &buf); err != nil {
		t.Fatalf("WriteDisplayPNG() error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != DisplaySize || b.Dy() != DisplaySize {
		t.Errorf("bounds = %v", b)
	}

	var nf *NotFoundError
	if err := w.WriteDisplayPNG("nope", &buf); !errors.As(err, &nf) {
		t.Errorf("WriteDisplayPNG(nope) error = %v, want NotFoundError", err)
	}
}

func TestAlign(t *testing.T) {
	tests := []struct {
		align      logic.Align
		vert, horz string
	}{
		{"", "bottom", "left"},
		{logic.AlignCenter, "center", "center"},
		{logic.AlignTop, "top", "center"},
		{logic.AlignLeft, "center", "left"},
		{logic.AlignBottomRight, "bottom", "right"},
		{logic.AlignTopLeft, "top", "left"},
	}
	for _, tt := range tests {
		t.Run(string(tt.align), func(t *testing.T) {
			if got := verticalOf(tt.align); got != tt.vert {
				t.Errorf("verticalOf = %s, want %s", got, tt.vert)
			}
			if got := horizontalOf(tt.align); got != tt.horz {
				t.Errorf("horizontalOf = %s, want %s", got, tt.horz)
			}
		})
	}
}

func TestPropertyColorPacking(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("channels survive packing", prop.ForAll(
		func(r, g, b uint8) bool {
			c := UnpackColor(packColor(float64(r), float64(g), float64(b)))
			return c.R == r && c.G == g && c.B == b && c.A == 0xFF
		},
		gen.UInt8(), gen.UInt8(), gen.UInt8(),
	))

	properties.Property("memory holds what was written", prop.ForAll(
		func(addr int, value float64) bool {
			w, err := New(Default())
			if err != nil {
				return false
			}
			cell, _ := w.Building("cell1")
			out := logic.NewVar("ret")
			_ = w.Run(&logic.Write{Target: objVar(cell), Address: numVar(float64(addr)), Value: numVar(value)})
			_ = w.Run(&logic.Read{Target: objVar(cell), Address: numVar(float64(addr)), Result: out})
			return out.Num() == value
		},
		gen.IntRange(0, DefaultCellSize-1),
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
