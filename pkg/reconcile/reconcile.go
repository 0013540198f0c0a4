// Package reconcile turns fetched snapshots into a stable working set. Nodes and
// edges that survive from one call to the next keep their identity, so the
// simulation state stored on them carries over.
package reconcile

import (
	"math/rand/v2"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// ReentryJitter is the half-width of the random offset applied to a cached position.
const ReentryJitter = 5.0

// Input is everything one reconciliation depends on.
type Input struct {
	Snapshot         graph.Snapshot
	Filters          graph.Filters
	Focus            graph.FocusMode
	Width, Height    float64
	ClusterTightness float64
	// Saved holds persisted positions by node id.
	Saved map[string]geometry.Point
}

// Result is the new working set plus the churn against the previous one.
type Result struct {
	Nodes []*graph.Node
	Edges []*graph.Edge

	Entered      int
	Exited       int
	EdgesEntered int
	EdgesExited  int
}

// NodeChurn is the number of nodes that entered or left.
func (r Result) NodeChurn() int { return r.Entered + r.Exited }

// EdgeChurn is the number of edges that entered or left.
func (r Result) EdgeChurn() int { return r.EdgesEntered + r.EdgesExited }

// Reconciler owns the stable node and edge pool. It is not safe for concurrent use.
type Reconciler struct {
	nodes     map[string]*graph.Node
	edges     map[string]*graph.Edge
	lastKnown map[string]geometry.Point
	rng       *rand.Rand
	logger    logging.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRand sets the random source used for seeding and jitter.
func WithRand(r *rand.Rand) Option {
	return func(rc *Reconciler) { rc.rng = r }
}

// WithLogger sets the logger used for dropped elements.
func WithLogger(l logging.Logger) Option {
	return func(rc *Reconciler) { rc.logger = l }
}

// New creates an empty Reconciler.
func New(opts ...Option) *Reconciler {
	rc := &Reconciler{
		nodes:     make(map[string]*graph.Node),
		edges:     make(map[string]*graph.Edge),
		lastKnown: make(map[string]geometry.Point),
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.rng == nil {
		seed := uint64(time.Now().UnixNano())
		rc.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return rc
}

// Reconcile merges in into the stable pool and returns the visible working set.
func (rc *Reconciler) Reconcile(in Input) Result {
	var res Result
	center := geometry.Point{X: in.Width / 2, Y: in.Height / 2}
	spread := in.ClusterTightness * min(in.Width, in.Height)

	surviving := make(map[string]*graph.Node, len(in.Snapshot.Nodes))
	res.Nodes = make([]*graph.Node, 0, len(in.Snapshot.Nodes))
	for _, raw := range in.Snapshot.Nodes {
		if raw.ID == "" || !raw.Type.Valid() {
			rc.logger.Debug("dropping malformed node", logging.NodeID(raw.ID))
			continue
		}
		if _, dup := surviving[raw.ID]; dup {
			continue
		}
		if !in.Filters.AllowsNode(raw) || !in.Focus.AllowsNode(raw.ID) {
			continue
		}

		n, ok := rc.nodes[raw.ID]
		if !ok {
			n = &graph.Node{ID: raw.ID}
			rc.place(n, in.Saved, center, spread)
			rc.nodes[raw.ID] = n
			res.Entered++
		}
		merge(n, raw)
		surviving[raw.ID] = n
		res.Nodes = append(res.Nodes, n)
	}

	for id, n := range rc.nodes {
		if _, ok := surviving[id]; ok {
			continue
		}
		if n.Placed && n.Pos().IsFinite() {
			rc.lastKnown[id] = n.Pos()
		}
		delete(rc.nodes, id)
		res.Exited++
	}

	keptEdges := make(map[string]bool, len(in.Snapshot.Edges))
	res.Edges = make([]*graph.Edge, 0, len(in.Snapshot.Edges))
	for _, raw := range in.Snapshot.Edges {
		if raw.ID == "" || keptEdges[raw.ID] {
			continue
		}
		if !in.Filters.AllowsRelationship(raw.Relationship) {
			continue
		}
		src, okS := surviving[raw.Source]
		dst, okT := surviving[raw.Target]
		if !okS || !okT {
			continue
		}

		e, ok := rc.edges[raw.ID]
		if !ok {
			e = &graph.Edge{ID: raw.ID}
			rc.edges[raw.ID] = e
			res.EdgesEntered++
		}
		e.Source, e.Target = src, dst
		e.Relationship = raw.Relationship
		e.Description = raw.Description
		e.Timestamp = raw.Timestamp
		keptEdges[raw.ID] = true
		res.Edges = append(res.Edges, e)
	}

	for id := range rc.edges {
		if !keptEdges[id] {
			delete(rc.edges, id)
			res.EdgesExited++
		}
	}

	return res
}

// place seeds a brand-new node: saved position, then cached position with
// jitter, then a random spot around the center.
func (rc *Reconciler) place(n *graph.Node, saved map[string]geometry.Point, center geometry.Point, spread float64) {
	if p, ok := saved[n.ID]; ok && p.IsFinite() {
		n.Place(p)
		return
	}
	if p, ok := rc.lastKnown[n.ID]; ok {
		n.Place(geometry.Point{
			X: p.X + (rc.rng.Float64()-0.5)*2*ReentryJitter,
			Y: p.Y + (rc.rng.Float64()-0.5)*2*ReentryJitter,
		})
		return
	}
	n.Place(geometry.Point{
		X: center.X + spread*(rc.rng.Float64()-0.5),
		Y: center.Y + spread*(rc.rng.Float64()-0.5),
	})
}

func merge(n *graph.Node, raw graph.RawNode) {
	n.Type = raw.Type
	n.Title = raw.Title
	n.Description = raw.Description
	n.Status = raw.Status
	n.ItemID = raw.ItemID
	if n.ItemID == "" {
		if _, id, ok := graph.SplitNodeID(raw.ID); ok {
			n.ItemID = id
		}
	}
}

// Node returns the pooled node with id, if present.
func (rc *Reconciler) Node(id string) (*graph.Node, bool) {
	n, ok := rc.nodes[id]
	return n, ok
}

// LastKnown returns the cached position of a node that left the working set.
func (rc *Reconciler) LastKnown(id string) (geometry.Point, bool) {
	p, ok := rc.lastKnown[id]
	return p, ok
}

// Forget drops all cached positions so the next entries are seeded afresh.
func (rc *Reconciler) Forget() {
	clear(rc.lastKnown)
}
