package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultSupersample is the oversampling factor used by NewRasterCanvas.
const DefaultSupersample = 2

// RasterCanvas draws into an in-memory RGBA image. It renders at a multiple
// of the requested size and downsamples on export for smooth edges.
type RasterCanvas struct {
	penStack

	width, height int
	ss            int
	background    color.RGBA
	img           *image.RGBA

	font  *opentype.Font
	faces map[int]font.Face
}

// RasterOption configures a RasterCanvas.
type RasterOption func(*RasterCanvas)

// WithSupersample sets the oversampling factor; values below 1 are ignored.
func WithSupersample(n int) RasterOption {
	return func(c *RasterCanvas) {
		if n >= 1 {
			c.ss = n
		}
	}
}

// WithBackground sets the color Clear fills with.
func WithBackground(bg color.RGBA) RasterOption {
	return func(c *RasterCanvas) { c.background = bg }
}

// NewRasterCanvas creates a width x height canvas using the Go Regular font.
func NewRasterCanvas(width, height int, opts ...RasterOption) (*RasterCanvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster canvas: invalid size %dx%d", width, height)
	}
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	c := &RasterCanvas{
		penStack:   penStack{pen: newPen()},
		width:      width,
		height:     height,
		ss:         DefaultSupersample,
		background: color.RGBA{A: 0xff},
		font:       fnt,
		faces:      make(map[int]font.Face),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width*c.ss, height*c.ss))
	c.Clear()
	return c, nil
}

func (c *RasterCanvas) Size() (float64, float64) {
	return float64(c.width), float64(c.height)
}

// Clear fills the image with the background color. Drawing state is kept.
func (c *RasterCanvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
}

// toDevice maps user space to supersampled pixels.
func (c *RasterCanvas) toDevice(x, y float64) (float64, float64) {
	dx, dy := c.device(x, y)
	s := float64(c.ss)
	return dx * s, dy * s
}

// deviceScale converts a user-space length to supersampled pixels.
func (c *RasterCanvas) deviceScale() float64 {
	return c.k * float64(c.ss)
}

// blend composites col over the pixel at (x, y) with coverage a.
func (c *RasterCanvas) blend(x, y int, col color.RGBA, a float64) {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return
	}
	a *= float64(col.A) / 255
	if a <= 0 {
		return
	}
	i := c.img.PixOffset(x, y)
	pix := c.img.Pix[i : i+4 : i+4]
	inv := 1 - a
	pix[0] = uint8(float64(col.R)*a + float64(pix[0])*inv)
	pix[1] = uint8(float64(col.G)*a + float64(pix[1])*inv)
	pix[2] = uint8(float64(col.B)*a + float64(pix[2])*inv)
	pix[3] = uint8(255*a + float64(pix[3])*inv)
}

// clipRange returns the integer pixel span [lo, hi) covering [a, b] inside [0, max).
func clipRange(a, b float64, limit int) (int, int) {
	lo := int(math.Floor(a))
	hi := int(math.Ceil(b)) + 1
	if lo < 0 {
		lo = 0
	}
	if hi > limit {
		hi = limit
	}
	return lo, hi
}

// StrokeLine draws a segment of the current width, honoring the dash pattern.
func (c *RasterCanvas) StrokeLine(x1, y1, x2, y2 float64) {
	ax, ay := c.toDevice(x1, y1)
	bx, by := c.toDevice(x2, y2)
	scale := c.deviceScale()
	half := math.Max(c.lineWidth*scale, 1) / 2

	vx, vy := bx-ax, by-ay
	length := math.Hypot(vx, vy)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return
	}
	ux, uy := vx/length, vy/length

	b := c.img.Bounds()
	x0, x1i := clipRange(math.Min(ax, bx)-half, math.Max(ax, bx)+half, b.Max.X)
	y0, y1i := clipRange(math.Min(ay, by)-half, math.Max(ay, by)+half, b.Max.Y)

	for py := y0; py < y1i; py++ {
		for px := x0; px < x1i; px++ {
			fx, fy := float64(px)+0.5-ax, float64(py)+0.5-ay
			along := fx*ux + fy*uy
			if along < 0 || along > length {
				continue
			}
			if math.Abs(fx*uy-fy*ux) > half {
				continue
			}
			if c.dash != nil && !dashOn(c.dash, along/scale) {
				continue
			}
			c.blend(px, py, c.stroke, c.alpha)
		}
	}
}

// FillCircle fills a disc.
func (c *RasterCanvas) FillCircle(x, y, r float64) {
	c.ring(x, y, -1, r, c.fill)
}

// StrokeCircle outlines a circle with the current line width.
func (c *RasterCanvas) StrokeCircle(x, y, r float64) {
	half := c.lineWidth / 2
	c.ring(x, y, r-half, r+half, c.stroke)
}

// ring paints pixels whose distance from (x, y) lies in (inner, outer], in user units.
func (c *RasterCanvas) ring(x, y, inner, outer float64, col color.RGBA) {
	cx, cy := c.toDevice(x, y)
	scale := c.deviceScale()
	ro := outer * scale
	ri := inner * scale
	if ro <= 0 || math.IsNaN(cx) || math.IsNaN(cy) {
		return
	}
	b := c.img.Bounds()
	x0, x1 := clipRange(cx-ro, cx+ro, b.Max.X)
	y0, y1 := clipRange(cy-ro, cy+ro, b.Max.Y)
	ro2 := ro * ro
	ri2 := ri * ri
	for py := y0; py < y1; py++ {
		dy := float64(py) + 0.5 - cy
		for px := x0; px < x1; px++ {
			dx := float64(px) + 0.5 - cx
			d2 := dx*dx + dy*dy
			if d2 > ro2 || (ri > 0 && d2 <= ri2) {
				continue
			}
			c.blend(px, py, col, c.alpha)
		}
	}
}

// face returns a cached face for a pixel size.
func (c *RasterCanvas) face(px int) (font.Face, error) {
	if f, ok := c.faces[px]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	c.faces[px] = f
	return f, nil
}

// FillText draws text centered on x with its vertical middle at y.
func (c *RasterCanvas) FillText(text string, x, y, size float64) {
	px := int(math.Round(size * c.deviceScale()))
	if text == "" || px < 1 {
		return
	}
	face, err := c.face(px)
	if err != nil {
		return
	}
	dx, dy := c.toDevice(x, y)
	width := font.MeasureString(face, text).Ceil()
	m := face.Metrics()
	baseline := dy + float64(m.Ascent.Ceil()-m.Descent.Ceil())/2

	src := color.NRGBA{R: c.fill.R, G: c.fill.G, B: c.fill.B, A: uint8(float64(c.fill.A) * c.alpha)}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(src),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(math.Round(dx)) - width/2),
			Y: fixed.I(int(math.Round(baseline))),
		},
	}
	d.DrawString(text)
}

// Image returns the canvas downsampled to its logical size.
func (c *RasterCanvas) Image() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	if c.ss == 1 {
		draw.Draw(out, out.Bounds(), c.img, image.Point{}, draw.Src)
		return out
	}
	draw.CatmullRom.Scale(out, out.Bounds(), c.img, c.img.Bounds(), draw.Src, nil)
	return out
}

// EncodePNG writes the downsampled image as PNG.
func (c *RasterCanvas) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, c.Image()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Close releases cached font faces.
func (c *RasterCanvas) Close() error {
	for px, f := range c.faces {
		_ = f.Close()
		delete(c.faces, px)
	}
	return nil
}
