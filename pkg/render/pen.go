package render

import (
	"image/color"
	"math"
)

// pen is the save/restore-able drawing state shared by the concrete canvases.
type pen struct {
	tx, ty, k float64
	stroke    color.RGBA
	fill      color.RGBA
	lineWidth float64
	dash      []float64
	alpha     float64
}

func newPen() pen {
	return pen{k: 1, lineWidth: 1, alpha: 1}
}

// device maps a user-space point through the current translate/scale.
func (p *pen) device(x, y float64) (float64, float64) {
	return x*p.k + p.tx, y*p.k + p.ty
}

func (p *pen) translate(x, y float64) {
	p.tx += x * p.k
	p.ty += y * p.k
}

func (p *pen) scale(k float64) {
	p.k *= k
}

// penStack is embedded by canvases to implement Save, Restore and the setters.
type penStack struct {
	pen
	saved []pen
}

func (s *penStack) Save() {
	cp := s.pen
	cp.dash = append([]float64(nil), s.dash...)
	s.saved = append(s.saved, cp)
}

// Restore pops the last Save; an unbalanced Restore is ignored.
func (s *penStack) Restore() {
	if len(s.saved) == 0 {
		return
	}
	s.pen = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
}

func (s *penStack) Translate(x, y float64)        { s.translate(x, y) }
func (s *penStack) Scale(k float64)               { s.scale(k) }
func (s *penStack) SetStrokeColor(c color.RGBA)   { s.stroke = c }
func (s *penStack) SetFillColor(c color.RGBA)     { s.fill = c }
func (s *penStack) SetLineWidth(w float64)        { s.lineWidth = w }
func (s *penStack) SetLineDash(pattern []float64) { s.dash = pattern }

func (s *penStack) SetAlpha(a float64) {
	s.alpha = math.Max(0, math.Min(1, a))
}

// dashOn reports whether distance d along a stroke falls in an "on" run of
// pattern, measured in the same units as d.
func dashOn(pattern []float64, d float64) bool {
	total := 0.0
	for _, v := range pattern {
		total += v
	}
	if total <= 0 {
		return true
	}
	m := math.Mod(d, total)
	for i, v := range pattern {
		if m < v {
			return i%2 == 0
		}
		m -= v
	}
	return true
}
