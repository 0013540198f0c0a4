package visualization

// quadtree is a region quadtree over point indices. Leaves hold one point, or
// several when they coincide or the depth limit is reached.
type quadtree struct {
	root *quad
}

type quad struct {
	x0, y0, x1, y1 float64
	kids           [4]*quad
	items          []int

	// Aggregates filled in by the force that owns the tree.
	value  float64
	cx, cy float64
	r      float64
}

const maxQuadDepth = 32

func (q *quad) leaf() bool {
	return q.kids == [4]*quad{}
}

// buildQuadtree indexes points xs/ys. The cover is square so cell width is
// uniform per depth.
func buildQuadtree(xs, ys []float64) *quadtree {
	if len(xs) == 0 {
		return &quadtree{}
	}
	x0, y0, x1, y1 := xs[0], ys[0], xs[0], ys[0]
	for i := range xs {
		x0, x1 = min(x0, xs[i]), max(x1, xs[i])
		y0, y1 = min(y0, ys[i]), max(y1, ys[i])
	}
	side := max(x1-x0, y1-y0, 1)
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	return &quadtree{root: subdivide(xs, ys, idx, x0, y0, x0+side, y0+side, 0)}
}

func subdivide(xs, ys []float64, idx []int, x0, y0, x1, y1 float64, depth int) *quad {
	q := &quad{x0: x0, y0: y0, x1: x1, y1: y1}
	if len(idx) <= 1 || depth >= maxQuadDepth || coincident(xs, ys, idx) {
		q.items = idx
		return q
	}

	mx, my := (x0+x1)/2, (y0+y1)/2
	var parts [4][]int
	for _, i := range idx {
		k := 0
		if xs[i] >= mx {
			k |= 1
		}
		if ys[i] >= my {
			k |= 2
		}
		parts[k] = append(parts[k], i)
	}
	bounds := [4][4]float64{
		{x0, y0, mx, my},
		{mx, y0, x1, my},
		{x0, my, mx, y1},
		{mx, my, x1, y1},
	}
	for k, part := range parts {
		if len(part) == 0 {
			continue
		}
		b := bounds[k]
		q.kids[k] = subdivide(xs, ys, part, b[0], b[1], b[2], b[3], depth+1)
	}
	return q
}

func coincident(xs, ys []float64, idx []int) bool {
	first := idx[0]
	for _, i := range idx[1:] {
		if xs[i] != xs[first] || ys[i] != ys[first] {
			return false
		}
	}
	return true
}

// postOrder calls fn on children before their parent.
func (t *quadtree) postOrder(fn func(*quad)) {
	var walk func(*quad)
	walk = func(q *quad) {
		for _, k := range q.kids {
			if k != nil {
				walk(k)
			}
		}
		fn(q)
	}
	if t.root != nil {
		walk(t.root)
	}
}

// visit walks the tree pre-order. Returning true from fn skips the quad's children.
func (t *quadtree) visit(fn func(*quad) bool) {
	var walk func(*quad)
	walk = func(q *quad) {
		if fn(q) {
			return
		}
		for _, k := range q.kids {
			if k != nil {
				walk(k)
			}
		}
	}
	if t.root != nil {
		walk(t.root)
	}
}
