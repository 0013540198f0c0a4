package visualization

import (
	"math"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// Bounds returns the bounding box of the placed nodes, grown by each node's radius.
// ok is false when no node is placed.
func Bounds(nodes []*graph.Node) (lo, hi geometry.Point, ok bool) {
	lo = geometry.Point{X: math.MaxFloat64, Y: math.MaxFloat64}
	hi = geometry.Point{X: -math.MaxFloat64, Y: -math.MaxFloat64}
	for _, n := range nodes {
		if !n.Placed || !n.Pos().IsFinite() {
			continue
		}
		r := n.Radius()
		lo.X = math.Min(lo.X, n.X-r)
		lo.Y = math.Min(lo.Y, n.Y-r)
		hi.X = math.Max(hi.X, n.X+r)
		hi.Y = math.Max(hi.Y, n.Y+r)
		ok = true
	}
	return lo, hi, ok
}

// FitTransform returns the transform that shows every placed node inside a
// width x height viewport with padding on each side. The scale is clamped to
// the zoom limits.
func FitTransform(nodes []*graph.Node, width, height, padding float64) geometry.Transform {
	lo, hi, ok := Bounds(nodes)
	if !ok {
		return geometry.Identity()
	}

	rangeX := hi.X - lo.X
	rangeY := hi.Y - lo.Y
	if rangeX < 0.01 {
		rangeX = 1
	}
	if rangeY < 0.01 {
		rangeY = 1
	}

	targetWidth := math.Max(width-2*padding, 1)
	targetHeight := math.Max(height-2*padding, 1)
	k := geometry.Clamp(math.Min(targetWidth/rangeX, targetHeight/rangeY), geometry.MinScale, geometry.MaxScale)

	midX := (lo.X + hi.X) / 2
	midY := (lo.Y + hi.Y) / 2
	return geometry.Transform{
		X: width/2 - midX*k,
		Y: height/2 - midY*k,
		K: k,
	}
}
