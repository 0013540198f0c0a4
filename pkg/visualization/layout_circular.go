package visualization

import (
	"math"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// ArrangeCircle places nodes evenly on a circle inside a width x height canvas,
// clearing velocities and pins. It is used to reset a tangled layout.
func ArrangeCircle(nodes []*graph.Node, width, height, padding float64) {
	if len(nodes) == 0 {
		return
	}

	centerX := width / 2
	centerY := height / 2
	if len(nodes) == 1 {
		nodes[0].Unpin()
		nodes[0].Place(geometry.Point{X: centerX, Y: centerY})
		nodes[0].VX, nodes[0].VY = 0, 0
		return
	}

	radius := math.Max(math.Min(centerX, centerY)-padding, 1)
	angleStep := 2 * math.Pi / float64(len(nodes))

	for i, n := range nodes {
		angle := float64(i) * angleStep
		n.Unpin()
		n.Place(geometry.Point{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		})
		n.VX, n.VY = 0, 0
	}
}
