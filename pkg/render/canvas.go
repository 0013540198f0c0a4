// Package render draws the working set. Renderer is an immediate-mode painter
// over the small Canvas interface; the package ships canvases for tests
// (Recorder), PNG export (RasterCanvas) and terminals (CellCanvas).
package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Canvas is the subset of a 2D drawing context the renderer needs. Coordinates
// passed to drawing calls are transformed by the current Translate/Scale state.
type Canvas interface {
	Size() (width, height float64)
	Clear()
	Save()
	Restore()
	Translate(x, y float64)
	Scale(k float64)

	SetStrokeColor(c color.RGBA)
	SetFillColor(c color.RGBA)
	SetLineWidth(w float64)
	SetLineDash(pattern []float64)
	SetAlpha(a float64)

	StrokeLine(x1, y1, x2, y2 float64)
	FillCircle(x, y, r float64)
	StrokeCircle(x, y, r float64)
	// FillText draws text centered horizontally on x with its middle at y.
	FillText(text string, x, y, size float64)
}

// Hex parses "#rrggbb" or "rrggbb". It panics on malformed input and is meant
// for package-level palettes.
func Hex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseHex parses "#rrggbb" or "rrggbb" into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// HexString formats c as "#rrggbb".
func HexString(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
