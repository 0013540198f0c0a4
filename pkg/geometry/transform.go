package geometry

// Zoom limits applied by ZoomAt.
const (
	MinScale = 0.1
	MaxScale = 4.0
)

// Transform is the pan/zoom applied between graph space and screen space:
// screen = graph*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity returns the transform that maps graph space onto screen space unchanged.
func Identity() Transform {
	return Transform{K: 1}
}

// Apply maps a graph-space point to screen space (translate then scale, as drawn).
func (t Transform) Apply(p Point) Point {
	return Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen-space point to graph space. It is the exact inverse of Apply.
func (t Transform) Invert(p Point) Point {
	return Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// Translate returns t panned by (dx, dy) screen pixels.
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{X: t.X + dx, Y: t.Y + dy, K: t.K}
}

// ZoomAt returns t rescaled by factor while keeping the graph point under the screen
// point anchor fixed. The resulting scale is clamped to [MinScale, MaxScale].
func (t Transform) ZoomAt(anchor Point, factor float64) Transform {
	k := Clamp(t.K*factor, MinScale, MaxScale)
	g := t.Invert(anchor)
	return Transform{
		X: anchor.X - g.X*k,
		Y: anchor.Y - g.Y*k,
		K: k,
	}
}

// Valid reports whether the transform can be inverted.
func (t Transform) Valid() bool {
	return t.K > 0 && IsFinite(t.K) && IsFinite(t.X) && IsFinite(t.Y)
}
