package visualization

import (
	"math"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// Force constants.
const (
	Theta             = 0.9
	CenterStrength    = 0.1
	CollisionStrength = 0.7
	distanceMin2      = 1.0
)

// linkForce pulls edge endpoints toward LinkDistance. Strength and bias follow
// node degree so hubs move less.
type linkForce struct {
	strength []float64
	bias     []float64
}

func (s *Simulation) initLinks() {
	count := make(map[*graph.Node]int, len(s.nodes))
	for _, e := range s.edges {
		count[e.Source]++
		count[e.Target]++
	}
	s.links.strength = make([]float64, len(s.edges))
	s.links.bias = make([]float64, len(s.edges))
	for i, e := range s.edges {
		cs, ct := count[e.Source], count[e.Target]
		s.links.strength[i] = 1 / float64(min(cs, ct))
		s.links.bias[i] = float64(cs) / float64(cs+ct)
	}
}

func (s *Simulation) applyLinks(alpha float64) {
	dist := s.params.LinkDistance
	for i, e := range s.edges {
		src, dst := e.Source, e.Target
		if src == dst {
			continue
		}
		x := dst.X + dst.VX - src.X - src.VX
		y := dst.Y + dst.VY - src.Y - src.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - dist) / l * alpha * s.links.strength[i]
		x *= l
		y *= l

		b := s.links.bias[i]
		dst.VX -= x * b
		dst.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// applyCharge is a Barnes-Hut many-body force. Every node carries the same
// strength, so a quad's value is strength times its point count.
func (s *Simulation) applyCharge(alpha float64) {
	n := len(s.nodes)
	if n < 2 || s.params.ChargeStrength == 0 {
		return
	}
	xs, ys := s.positions(false)
	tree := buildQuadtree(xs, ys)
	strength := s.params.ChargeStrength

	tree.postOrder(func(q *quad) {
		q.value, q.cx, q.cy = 0, 0, 0
		if q.leaf() {
			for _, i := range q.items {
				q.cx += xs[i]
				q.cy += ys[i]
			}
			q.cx /= float64(len(q.items))
			q.cy /= float64(len(q.items))
			q.value = strength * float64(len(q.items))
			return
		}
		var weight float64
		for _, k := range q.kids {
			if k == nil {
				continue
			}
			w := math.Abs(k.value)
			q.value += k.value
			q.cx += w * k.cx
			q.cy += w * k.cy
			weight += w
		}
		if weight > 0 {
			q.cx /= weight
			q.cy /= weight
		}
	})

	theta2 := Theta * Theta
	for i, node := range s.nodes {
		if node.Pinned() {
			continue
		}
		xi, yi := xs[i], ys[i]
		tree.visit(func(q *quad) bool {
			if q.value == 0 {
				return true
			}
			dx, dy := q.cx-xi, q.cy-yi
			w := q.x1 - q.x0
			l := dx*dx + dy*dy

			if w*w/theta2 < l {
				if dx == 0 {
					dx = s.jiggle()
					l += dx * dx
				}
				if dy == 0 {
					dy = s.jiggle()
					l += dy * dy
				}
				if l < distanceMin2 {
					l = math.Sqrt(distanceMin2 * l)
				}
				node.VX += dx * q.value * alpha / l
				node.VY += dy * q.value * alpha / l
				return true
			}
			if !q.leaf() {
				return false
			}

			for _, j := range q.items {
				if j == i {
					continue
				}
				dx, dy := xs[j]-xi, ys[j]-yi
				if dx == 0 {
					dx = s.jiggle()
				}
				if dy == 0 {
					dy = s.jiggle()
				}
				l := dx*dx + dy*dy
				if l < distanceMin2 {
					l = math.Sqrt(distanceMin2 * l)
				}
				w := strength * alpha / l
				node.VX += dx * w
				node.VY += dy * w
			}
			return true
		})
	}
}

// applyCenter shifts every node so the centroid moves toward the canvas center.
func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.X
		sy += n.Y
	}
	cnt := float64(len(s.nodes))
	sx = (sx/cnt - s.width/2) * CenterStrength
	sy = (sy/cnt - s.height/2) * CenterStrength
	for _, n := range s.nodes {
		n.X -= sx
		n.Y -= sy
	}
}

// applyCollision separates overlapping nodes using predicted positions.
func (s *Simulation) applyCollision() {
	n := len(s.nodes)
	if n < 2 {
		return
	}
	radii := make([]float64, n)
	for i, node := range s.nodes {
		radii[i] = node.Radius() + s.params.CollisionRadius
	}
	xs, ys := s.positions(true)
	tree := buildQuadtree(xs, ys)
	tree.postOrder(func(q *quad) {
		q.r = 0
		for _, i := range q.items {
			q.r = max(q.r, radii[i])
		}
		for _, k := range q.kids {
			if k != nil {
				q.r = max(q.r, k.r)
			}
		}
	})

	for i, node := range s.nodes {
		ri := radii[i]
		ri2 := ri * ri
		xi := node.X + node.VX
		yi := node.Y + node.VY
		tree.visit(func(q *quad) bool {
			r := ri + q.r
			if q.x0 > xi+r || q.x1 < xi-r || q.y0 > yi+r || q.y1 < yi-r {
				return true
			}
			if !q.leaf() {
				return false
			}
			for _, j := range q.items {
				if j <= i {
					continue
				}
				other := s.nodes[j]
				rj := radii[j]
				x := xi - other.X - other.VX
				y := yi - other.Y - other.VY
				l := x*x + y*y
				rr := ri + rj
				if l >= rr*rr {
					continue
				}
				if x == 0 {
					x = s.jiggle()
					l += x * x
				}
				if y == 0 {
					y = s.jiggle()
					l += y * y
				}
				l = math.Sqrt(l)
				l = (rr - l) / l * CollisionStrength
				x *= l
				y *= l
				share := rj * rj / (ri2 + rj*rj)
				node.VX += x * share
				node.VY += y * share
				other.VX -= x * (1 - share)
				other.VY -= y * (1 - share)
			}
			return true
		})
	}
}

func (s *Simulation) positions(predicted bool) ([]float64, []float64) {
	xs := make([]float64, len(s.nodes))
	ys := make([]float64, len(s.nodes))
	for i, n := range s.nodes {
		xs[i], ys[i] = n.X, n.Y
		if predicted {
			xs[i] += n.VX
			ys[i] += n.VY
		}
	}
	return xs, ys
}
