// Package engine owns one interactive graph view: the stable working set, the
// layout simulation, the optimistic edge overlay, persisted preferences and
// the interaction controller.
//
// An Engine is driven from a single goroutine. Backend and preference I/O run
// on a worker pool; their results are queued and applied by Drain or Frame on
// the driving goroutine, so engine state is never touched concurrently.
package engine

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/backend"
	"github.com/dd0wney/cluso-graphview/pkg/debounce"
	"github.com/dd0wney/cluso-graphview/pkg/dispatch"
	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/interaction"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/overlay"
	"github.com/dd0wney/cluso-graphview/pkg/prefs"
	"github.com/dd0wney/cluso-graphview/pkg/reconcile"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// Defaults.
const (
	DefaultWidth    = 960
	DefaultHeight   = 640
	DefaultWorkers  = 4
	DefaultHopDepth = 2
	// ResetPadding keeps the circle from ResetLayout off the canvas edge.
	ResetPadding = 60.0
)

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("engine is closed")

type config struct {
	width, height float64
	logger        logging.Logger
	metrics       *metrics.Registry
	now           func() time.Time
	rng           *rand.Rand
	debounce      time.Duration
	ttl           time.Duration
	workers       int
	hopDepth      int
	fetchLimit    int
	params        graph.SimulationParameters
	theme         render.Theme
}

// Option configures an Engine.
type Option func(*config)

// WithSize sets the canvas size in graph units.
func WithSize(width, height float64) Option {
	return func(c *config) { c.width, c.height = width, height }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *config) { c.metrics = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithRand makes seeding and jiggle deterministic.
func WithRand(r *rand.Rand) Option {
	return func(c *config) { c.rng = r }
}

// WithDebounce sets the trailing delay for preference writes.
func WithDebounce(d time.Duration) Option {
	return func(c *config) { c.debounce = d }
}

// WithOptimisticTTL sets how long an unconfirmed optimistic edge is kept.
func WithOptimisticTTL(d time.Duration) Option {
	return func(c *config) { c.ttl = d }
}

// WithWorkers sets the number of I/O workers.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithHopDepth sets the neighbourhood depth used by focus mode.
func WithHopDepth(n int) Option {
	return func(c *config) { c.hopDepth = n }
}

// WithFetchLimit caps the number of nodes requested per fetch. Zero means no cap.
func WithFetchLimit(n int) Option {
	return func(c *config) { c.fetchLimit = n }
}

// WithParameters sets the simulation parameters used before stored overrides apply.
func WithParameters(p graph.SimulationParameters) Option {
	return func(c *config) { c.params = p }
}

// WithTheme sets the render theme.
func WithTheme(t render.Theme) Option {
	return func(c *config) { c.theme = t }
}

// Engine is one graph view. See the package documentation for its threading model.
type Engine struct {
	cfg    config
	logger logging.Logger

	source backend.GraphSource
	links  backend.LinkService

	reconciler *reconcile.Reconciler
	sim        *visualization.Simulation
	overlay    *overlay.Store
	ctrl       *interaction.Controller
	renderer   *render.Renderer

	debouncer  *debounce.Debouncer
	positions  *prefs.Persister[geometry.Point]
	parameters *prefs.Persister[float64]
	dispatcher *dispatch.Dispatcher

	width, height float64
	transform     geometry.Transform

	filters   graph.Filters
	focus     graph.FocusMode
	nodes     []*graph.Node
	confirmed []*graph.Edge
	visible   []*graph.Edge
	loaded    bool

	search  string
	matches map[string]struct{}

	fetching    bool
	refetch     bool
	pendingView *fetchResult
	dirty       bool
	closed      bool
}

// New creates an Engine reading graphs from source, sending link mutations to
// links and persisting preferences in store.
func New(source backend.GraphSource, links backend.LinkService, store prefs.Store, opts ...Option) (*Engine, error) {
	cfg := config{
		width:    DefaultWidth,
		height:   DefaultHeight,
		logger:   logging.NewNopLogger(),
		now:      time.Now,
		debounce: debounce.DefaultDelay,
		ttl:      overlay.DefaultTTL,
		workers:  DefaultWorkers,
		hopDepth: DefaultHopDepth,
		params:   graph.DefaultSimulationParameters(),
		theme:    render.DefaultTheme(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = metrics.NewRegistry()
	}
	if cfg.rng == nil {
		seed := uint64(cfg.now().UnixNano())
		cfg.rng = rand.New(rand.NewPCG(seed, seed>>3|1))
	}
	if err := cfg.params.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.logger.With(logging.Component("engine"))
	disp, err := dispatch.New(cfg.workers, logger)
	if err != nil {
		return nil, err
	}

	deb := debounce.New(cfg.debounce)
	popts := []prefs.Option{prefs.WithLogger(logger), prefs.WithMetrics(cfg.metrics), prefs.WithClock(cfg.now)}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		source:     source,
		links:      links,
		reconciler: reconcile.New(reconcile.WithRand(cfg.rng), reconcile.WithLogger(logger)),
		sim: visualization.NewSimulation(cfg.width, cfg.height,
			visualization.WithRand(cfg.rng),
			visualization.WithParameters(cfg.params)),
		overlay:    overlay.New(cfg.ttl),
		renderer:   render.NewRenderer(cfg.theme),
		debouncer:  deb,
		positions:  prefs.NewPositionPersister(store, deb, popts...),
		parameters: prefs.NewParameterPersister(store, deb, popts...),
		dispatcher: disp,
		width:      cfg.width,
		height:     cfg.height,
		transform:  geometry.Identity(),
		dirty:      true,
	}
	e.ctrl = interaction.NewController(e, interaction.WithLogger(logger), interaction.WithClock(cfg.now))
	return e, nil
}

// Controller returns the interaction controller. Hosts call its commands
// (menus, picker, link mode) directly.
func (e *Engine) Controller() *interaction.Controller { return e.ctrl }

// Nodes returns the visible working-set nodes.
func (e *Engine) Nodes() []*graph.Node { return e.nodes }

// Edges returns the draw and hit-test list: confirmed plus optimistic edges,
// deduplicated, without locally deleted ones.
func (e *Engine) Edges() []*graph.Edge { return e.visible }

// Filters returns the active filters.
func (e *Engine) Filters() graph.Filters { return e.filters }

// Focus returns the active focus mode.
func (e *Engine) Focus() graph.FocusMode { return e.focus }

// Alpha returns the simulation temperature.
func (e *Engine) Alpha() float64 { return e.sim.Alpha() }

// Parameters returns the active simulation parameters.
func (e *Engine) Parameters() graph.SimulationParameters { return e.sim.Parameters() }

// Size returns the canvas size.
func (e *Engine) Size() (width, height float64) { return e.width, e.height }

// Overlay reports how many optimistic edges and hidden ids are pending.
func (e *Engine) Overlay() (optimistic, hidden int) {
	return e.overlay.Len(), e.overlay.HiddenLen()
}

// Node returns a visible node by id.
func (e *Engine) Node(id string) (*graph.Node, bool) {
	for _, n := range e.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Resize changes the canvas size. The center force follows the new middle.
func (e *Engine) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	e.width, e.height = width, height
	e.sim.SetSize(width, height)
	e.dirty = true
}

// FitView zooms and pans so every node is visible.
func (e *Engine) FitView() {
	e.SetTransform(visualization.FitTransform(e.nodes, e.width, e.height, ResetPadding))
}

// Close stops the simulation, drops pending preference writes and stops the
// I/O workers. It is safe to call more than once.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.sim.Stop()
	if n := e.debouncer.Stop(); n > 0 {
		e.logger.Debug("dropped pending preference writes", logging.Count(n))
	}
	e.dispatcher.Close()
	e.logger.Info("engine closed")
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool { return e.closed }
