// Package visualization lays out the working set: a continuously running force
// simulation plus a few static arrangements.
package visualization

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// Temperature model.
const (
	InitialAlpha       = 0.8
	AlphaMin           = 0.001
	DefaultAlphaTarget = 0.001
	DragAlphaTarget    = 0.1
	VelocityDecay      = 0.4

	AlphaLargeChange  = 0.25
	AlphaMediumChange = 0.08
	AlphaSmallChange  = 0.02
)

// AlphaDecay brings alpha from 1 to AlphaMin in about 300 ticks.
var AlphaDecay = 1 - math.Pow(AlphaMin, 1.0/300)

// AlphaForChurn maps the size of a working-set change to the temperature to restart at.
func AlphaForChurn(nodes, edges int) float64 {
	switch {
	case nodes > 10 || edges > 20:
		return AlphaLargeChange
	case nodes > 3 || edges > 5:
		return AlphaMediumChange
	default:
		return AlphaSmallChange
	}
}

// Simulation advances node positions one tick at a time. It mutates the nodes it
// is given and is not safe for concurrent use.
type Simulation struct {
	nodes  []*graph.Node
	edges  []*graph.Edge
	params graph.SimulationParameters

	width, height float64

	alpha       float64
	alphaTarget float64
	stopped     bool
	ticks       int

	links linkForce
	rng   *rand.Rand
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRand sets the random source used for jiggle and reseeding.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulation) { s.rng = r }
}

// WithParameters sets the initial layout parameters.
func WithParameters(p graph.SimulationParameters) Option {
	return func(s *Simulation) { s.params = p }
}

// NewSimulation creates a simulation centered on a width x height canvas.
func NewSimulation(width, height float64, opts ...Option) *Simulation {
	s := &Simulation{
		params:      graph.DefaultSimulationParameters(),
		width:       width,
		height:      height,
		alpha:       InitialAlpha,
		alphaTarget: DefaultAlphaTarget,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return s
}

// SetNodes replaces the simulated node set.
func (s *Simulation) SetNodes(nodes []*graph.Node) {
	s.nodes = nodes
	s.initLinks()
}

// SetEdges replaces the simulated edge set. Endpoints must be nodes of the current set.
func (s *Simulation) SetEdges(edges []*graph.Edge) {
	s.edges = edges
	s.initLinks()
}

// SetSize moves the center force to the middle of a resized canvas.
func (s *Simulation) SetSize(width, height float64) {
	s.width, s.height = width, height
}

// Parameters returns the active layout parameters.
func (s *Simulation) Parameters() graph.SimulationParameters {
	return s.params
}

// SetParameter applies one layout parameter live. Alpha is raised to
// AlphaSmallChange only if it has decayed below it.
func (s *Simulation) SetParameter(name string, value float64) error {
	p, err := s.params.With(name, value)
	if err != nil {
		return err
	}
	s.params = p
	if s.alpha < AlphaSmallChange {
		s.alpha = AlphaSmallChange
	}
	return nil
}

// Nudge restarts the simulation at alpha. It sets the temperature, so a
// nudge can also cool a simulation that is still hot.
func (s *Simulation) Nudge(alpha float64) {
	s.alpha = alpha
}

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// AlphaTarget returns the temperature floor alpha decays toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget changes the floor, e.g. while a node is dragged.
func (s *Simulation) SetAlphaTarget(t float64) { s.alphaTarget = t }

// settleEpsilon is how close alpha must come to a resting target to count as cooled.
const settleEpsilon = 1e-4

// Active reports whether ticking would still visibly move nodes: the
// simulation is running and either still cooling or held warm by a raised
// alpha target.
func (s *Simulation) Active() bool {
	if s.stopped {
		return false
	}
	return s.alphaTarget > AlphaMin || s.alpha >= AlphaMin+settleEpsilon
}

// Ticks returns how many ticks have run.
func (s *Simulation) Ticks() int { return s.ticks }

// Stop ends the simulation for good. Later ticks do nothing.
func (s *Simulation) Stop() { s.stopped = true }

// Stopped reports whether Stop was called.
func (s *Simulation) Stopped() bool { return s.stopped }

// Tick advances the layout one step and reports whether it ran.
func (s *Simulation) Tick() bool {
	if s.stopped {
		return false
	}
	s.reseedNonFinite()

	s.alpha += (s.alphaTarget - s.alpha) * AlphaDecay
	alpha := s.alpha

	s.applyLinks(alpha)
	s.applyCharge(alpha)
	s.applyCenter()
	s.applyCollision()

	keep := 1 - VelocityDecay
	for _, n := range s.nodes {
		if n.Pinned() {
			n.X, n.Y = *n.FX, *n.FY
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= keep
		n.VY *= keep
		n.X += n.VX
		n.Y += n.VY
	}
	s.ticks++
	return true
}

// Warmup runs up to n ticks, stopping early once the simulation cools, and
// returns how many ran.
func (s *Simulation) Warmup(n int) int {
	for i := 0; i < n; i++ {
		if !s.Active() {
			return i
		}
		s.Tick()
	}
	return n
}

// reseedNonFinite puts any node with a non-finite position or velocity back
// near the canvas center at rest.
func (s *Simulation) reseedNonFinite() {
	spread := s.params.ClusterTightness * min(s.width, s.height)
	for _, n := range s.nodes {
		if n.Pinned() && !(geometry.IsFinite(*n.FX) && geometry.IsFinite(*n.FY)) {
			n.Unpin()
		}
		if n.Placed && n.Pos().IsFinite() && geometry.IsFinite(n.VX) && geometry.IsFinite(n.VY) {
			continue
		}
		n.Place(geometry.Point{
			X: s.width/2 + spread*(s.rng.Float64()-0.5),
			Y: s.height/2 + spread*(s.rng.Float64()-0.5),
		})
		n.VX, n.VY = 0, 0
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
