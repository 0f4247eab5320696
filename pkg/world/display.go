package world

import (
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/zurustar/procscript/pkg/logic"
)

// Display sizes in pixels.
const (
	DisplaySize      = 80
	LargeDisplaySize = 176
	maxPolySides     = 50
)

var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// DrawCommand is one queued graphics operation.
type DrawCommand struct {
	Type  logic.GraphicsType
	P     [6]float64
	Obj   any
	Text  string
	Align logic.Align
}

// Display rasterizes draw commands. Drawing coordinates start at the bottom
// left corner. Color, stroke and transform persist between flushes.
type Display struct {
	size      int
	img       *image.RGBA
	col       color.NRGBA
	stroke    float64
	transform f64.Aff3
	z         *vector.Rasterizer
	flushes   int
}

// NewDisplay creates a black square display.
func NewDisplay(size int) *Display {
	d := &Display{
		size:      size,
		img:       image.NewRGBA(image.Rect(0, 0, size, size)),
		col:       color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		stroke:    1,
		transform: identity,
		z:         vector.NewRasterizer(size, size),
	}
	draw.Draw(d.img, d.img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return d
}

// Size returns the edge length in pixels.
func (d *Display) Size() int { return d.size }

// Flushes returns how many draw flushes the display received.
func (d *Display) Flushes() int { return d.flushes }

// Snapshot copies the current pixels.
func (d *Display) Snapshot() *image.RGBA {
	out := image.NewRGBA(d.img.Rect)
	copy(out.Pix, d.img.Pix)
	return out
}

// Apply executes commands in order.
func (d *Display) Apply(cmds []DrawCommand) {
	d.flushes++
	for _, c := range cmds {
		d.apply(c)
	}
}

func (d *Display) apply(c DrawCommand) {
	p := c.P
	switch c.Type {
	case logic.DrawClear:
		fill := color.NRGBA{R: channel(p[0]), G: channel(p[1]), B: channel(p[2]), A: 255}
		draw.Draw(d.img, d.img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)
	case logic.DrawColor:
		d.col = color.NRGBA{R: channel(p[0]), G: channel(p[1]), B: channel(p[2]), A: channel(p[3])}
	case logic.DrawStroke:
		d.stroke = max(p[0], 0)
	case logic.DrawLine:
		d.line(p[0], p[1], p[2], p[3])
	case logic.DrawRect:
		d.fill([][2]float64{{p[0], p[1]}, {p[0] + p[2], p[1]}, {p[0] + p[2], p[1] + p[3]}, {p[0], p[1] + p[3]}})
	case logic.DrawLineRect:
		x, y, w, h := p[0], p[1], p[2], p[3]
		d.outline([][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}})
	case logic.DrawPoly:
		d.fill(polygon(p[0], p[1], p[2], p[3], p[4]))
	case logic.DrawLinePoly:
		d.outline(polygon(p[0], p[1], p[2], p[3], p[4]))
	case logic.DrawTriangle:
		d.fill([][2]float64{{p[0], p[1]}, {p[2], p[3]}, {p[4], p[5]}})
	case logic.DrawImage:
		d.image(p[0], p[1], c.Obj, p[3], p[4])
	case logic.DrawPrint:
		d.text(p[0], p[1], c.Text, c.Align)
	case logic.DrawTranslate:
		d.transform = mul(d.transform, f64.Aff3{1, 0, p[0], 0, 1, p[1]})
	case logic.DrawScale:
		d.transform = mul(d.transform, f64.Aff3{p[0], 0, 0, 0, p[1], 0})
	case logic.DrawRotate:
		s, cos := math.Sincos(p[0] * math.Pi / 180)
		d.transform = mul(d.transform, f64.Aff3{cos, -s, 0, s, cos, 0})
	case logic.DrawReset:
		d.transform = identity
	}
}

// toPixel applies the transform and flips y.
func (d *Display) toPixel(x, y float64) (float32, float32) {
	t := d.transform
	tx := t[0]*x + t[1]*y + t[2]
	ty := t[3]*x + t[4]*y + t[5]
	return float32(tx), float32(float64(d.size) - ty)
}

func (d *Display) fill(pts [][2]float64) {
	if len(pts) < 3 {
		return
	}
	d.z.Reset(d.size, d.size)
	d.z.DrawOp = draw.Over
	d.z.MoveTo(d.toPixel(pts[0][0], pts[0][1]))
	for _, pt := range pts[1:] {
		d.z.LineTo(d.toPixel(pt[0], pt[1]))
	}
	d.z.ClosePath()
	d.z.Draw(d.img, d.img.Bounds(), image.NewUniform(d.col), image.Point{})
}

// line draws a segment as a quad stroke wide.
func (d *Display) line(x1, y1, x2, y2 float64) {
	length := math.Hypot(x2-x1, y2-y1)
	if length == 0 || d.stroke == 0 {
		return
	}
	nx := -(y2 - y1) / length * d.stroke / 2
	ny := (x2 - x1) / length * d.stroke / 2
	d.fill([][2]float64{{x1 + nx, y1 + ny}, {x2 + nx, y2 + ny}, {x2 - nx, y2 - ny}, {x1 - nx, y1 - ny}})
}

func (d *Display) outline(pts [][2]float64) {
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		d.line(a[0], a[1], b[0], b[1])
	}
}

func polygon(x, y, sides, radius, rotation float64) [][2]float64 {
	n := int(math.Min(math.Max(sides, 3), maxPolySides))
	pts := make([][2]float64, n)
	for i := range n {
		a := (rotation + float64(i)*360/float64(n)) * math.Pi / 180
		pts[i] = [2]float64{x + radius*math.Cos(a), y + radius*math.Sin(a)}
	}
	return pts
}

// image draws content icons as squares tinted by the content name.
func (d *Display) image(x, y float64, obj any, size, rotation float64) {
	name := logic.FormatValue(obj)
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()

	prev := d.col
	d.col = color.NRGBA{R: uint8(sum >> 16), G: uint8(sum >> 8), B: uint8(sum), A: 255}
	half := size / 2
	pts := [][2]float64{{-half, -half}, {half, -half}, {half, half}, {-half, half}}
	s, c := math.Sincos(rotation * math.Pi / 180)
	for i, pt := range pts {
		pts[i] = [2]float64{x + pt[0]*c - pt[1]*s, y + pt[0]*s + pt[1]*c}
	}
	d.fill(pts)
	d.col = prev
}

func (d *Display) text(x, y float64, text string, align logic.Align) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	lines := strings.Split(text, "\n")
	px, py := d.toPixel(x, y)
	lineHeight := face.Height
	blockHeight := lineHeight * len(lines)

	top := int(py) - blockHeight
	switch verticalOf(align) {
	case "top":
		top = int(py)
	case "center":
		top = int(py) - blockHeight/2
	}

	for i, line := range lines {
		drawer := &font.Drawer{
			Dst:  d.img,
			Src:  image.NewUniform(d.col),
			Face: face,
		}
		width := drawer.MeasureString(line).Ceil()
		left := int(px)
		switch horizontalOf(align) {
		case "right":
			left -= width
		case "center":
			left -= width / 2
		}
		drawer.Dot = fixed.P(left, top+face.Ascent+i*lineHeight)
		drawer.DrawString(line)
	}
}

// verticalOf and horizontalOf split an Align. The empty Align is bottom left.
func verticalOf(a logic.Align) string {
	switch {
	case a == "":
		return "bottom"
	case strings.HasPrefix(string(a), "top"):
		return "top"
	case strings.HasPrefix(string(a), "bottom"):
		return "bottom"
	}
	return "center"
}

func horizontalOf(a logic.Align) string {
	s := strings.ToLower(string(a))
	switch {
	case a == "":
		return "left"
	case strings.HasSuffix(s, "left"):
		return "left"
	case strings.HasSuffix(s, "right"):
		return "right"
	}
	return "center"
}

func mul(m, n f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0]*n[0] + m[1]*n[3], m[0]*n[1] + m[1]*n[4], m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3], m[3]*n[1] + m[4]*n[4], m[3]*n[2] + m[4]*n[5] + m[5],
	}
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// packColor packs 0-255 channels as 0xRRGGBB.
func packColor(r, g, b float64) float64 {
	return float64(int(channel(r))<<16 | int(channel(g))<<8 | int(channel(b)))
}

// UnpackColor is the inverse of the packing used by the color control.
func UnpackColor(c float64) color.RGBA {
	v := int(c)
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

func (w *World) draw(in *logic.Draw) {
	if len(w.draws) >= MaxGraphicsBuffer {
		return
	}
	cmd := DrawCommand{
		Type:  in.Type,
		P:     [6]float64{num(in.P1), num(in.P2), num(in.P3), num(in.P4), num(in.P5), num(in.P6)},
		Text:  in.Text,
		Align: in.Align,
	}
	if in.Type == logic.DrawImage && in.P3 != nil {
		cmd.Obj = in.P3.Obj()
	}
	w.draws = append(w.draws, cmd)
}

// drawFlush clears the draw buffer even when the target is not a display.
func (w *World) drawFlush(in *logic.DrawFlush) {
	if b, ok := asEntity(in.Target).(*Building); ok && b.Display != nil {
		b.Display.Apply(w.draws)
	}
	w.draws = w.draws[:0]
}

// WriteDisplayPNG encodes the named display as PNG.
func (w *World) WriteDisplayPNG(name string, out io.Writer) error {
	img, ok := w.DisplayImage(name)
	if !ok {
		return &NotFoundError{Kind: "display", Name: name}
	}
	return png.Encode(out, img)
}
