package backend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/validation"
)

// Memory is an in-process GraphSource and LinkService. It backs tests and the
// demo mode of the CLI.
type Memory struct {
	mu     sync.Mutex
	nodes  []graph.RawNode
	edges  []graph.RawEdge
	nextID int64
	now    func() time.Time

	failures map[string]error
	calls    map[string]int
}

// NewMemory creates a Memory seeded with snap. Confirmed link ids in snap
// advance the id counter so created links never collide.
func NewMemory(snap graph.Snapshot) *Memory {
	m := &Memory{
		nodes:    slices.Clone(snap.Nodes),
		edges:    slices.Clone(snap.Edges),
		nextID:   1,
		now:      time.Now,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, e := range m.edges {
		if id, err := graph.ParseLinkID(e.ID); err == nil && id >= m.nextID {
			m.nextID = id + 1
		}
	}
	return m
}

// FailNext makes the next call of op fail with err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Calls reports how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Snapshot returns the full current graph.
func (m *Memory) Snapshot() graph.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return graph.Snapshot{Nodes: slices.Clone(m.nodes), Edges: slices.Clone(m.edges)}
}

// AddNode appends a node.
func (m *Memory) AddNode(n graph.RawNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = append(m.nodes, n)
}

// RemoveNode drops a node and every edge touching it.
func (m *Memory) RemoveNode(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.nodes, func(n graph.RawNode) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	m.nodes = slices.Delete(m.nodes, i, i+1)
	m.edges = slices.DeleteFunc(m.edges, func(e graph.RawEdge) bool { return e.Source == id || e.Target == id })
	return true
}

// begin counts a call and returns an injected failure, if any. Callers hold mu.
func (m *Memory) begin(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return &RequestError{Op: op, Cause: err}
	}
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return &RequestError{Op: op, Cause: err}
	}
	return nil
}

// FetchSnapshot implements GraphSource. Focus requests return the nodes within
// HopDepth undirected hops of the center.
func (m *Memory) FetchSnapshot(ctx context.Context, req FetchRequest) (graph.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpFetch); err != nil {
		return graph.Snapshot{}, err
	}

	allowed := graph.SetOf(req.NodeTypes...)
	var reach map[string]struct{}
	if req.Focus != nil && req.Focus.CenterNodeID != "" {
		reach = neighborhood(m.edges, req.Focus.CenterNodeID, req.Focus.HopDepth)
	}

	var out graph.Snapshot
	keep := make(map[string]struct{})
	for _, n := range m.nodes {
		if len(allowed) > 0 {
			if _, ok := allowed[n.Type]; !ok {
				continue
			}
		}
		if reach != nil {
			if _, ok := reach[n.ID]; !ok {
				continue
			}
		}
		if req.Limit > 0 && len(out.Nodes) >= req.Limit {
			break
		}
		out.Nodes = append(out.Nodes, n)
		keep[n.ID] = struct{}{}
	}
	for _, e := range m.edges {
		_, src := keep[e.Source]
		_, dst := keep[e.Target]
		if src && dst {
			out.Edges = append(out.Edges, e)
		}
	}
	return out, nil
}

// neighborhood returns ids within depth undirected hops of center, center included.
func neighborhood(edges []graph.RawEdge, center string, depth int) map[string]struct{} {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	seen := map[string]struct{}{center: {}}
	frontier := []string{center}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range adj[id] {
				if _, ok := seen[nb]; ok {
					continue
				}
				seen[nb] = struct{}{}
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return seen
}

func (m *Memory) hasNode(id string) bool {
	return slices.ContainsFunc(m.nodes, func(n graph.RawNode) bool { return n.ID == id })
}

// CreateLink implements LinkService.
func (m *Memory) CreateLink(ctx context.Context, req graph.CreateLinkRequest) (graph.CreatedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreate); err != nil {
		return graph.CreatedLink{}, err
	}
	if err := validation.ValidateCreateLink(&req); err != nil {
		return graph.CreatedLink{}, &RequestError{Op: OpCreate, Status: 400, Cause: err}
	}

	src := graph.NodeID(req.SourceType, req.SourceID)
	dst := graph.NodeID(req.TargetType, req.TargetID)
	for _, id := range []string{src, dst} {
		if !m.hasNode(id) {
			return graph.CreatedLink{}, &RequestError{Op: OpCreate, Status: 404, Cause: fmt.Errorf("%w: %s", ErrNodeNotFound, id)}
		}
	}

	id := m.nextID
	m.nextID++
	m.edges = append(m.edges, graph.RawEdge{
		ID:           graph.ConfirmedLinkID(id),
		Source:       src,
		Target:       dst,
		Relationship: req.Relationship,
		Description:  req.Description,
		Timestamp:    m.now().UTC(),
	})
	return graph.CreatedLink{ID: id}, nil
}

func (m *Memory) linkIndex(linkID int64) int {
	want := graph.ConfirmedLinkID(linkID)
	return slices.IndexFunc(m.edges, func(e graph.RawEdge) bool { return e.ID == want })
}

// UpdateLink implements LinkService.
func (m *Memory) UpdateLink(ctx context.Context, req graph.UpdateLinkRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdate); err != nil {
		return err
	}
	if err := validation.ValidateUpdateLink(&req); err != nil {
		return &RequestError{Op: OpUpdate, Status: 400, Cause: err}
	}
	i := m.linkIndex(req.LinkID)
	if i < 0 {
		return &RequestError{Op: OpUpdate, Status: 404, Cause: ErrLinkNotFound}
	}
	if req.Relationship != nil {
		m.edges[i].Relationship = *req.Relationship
	}
	if req.Description != nil {
		m.edges[i].Description = *req.Description
	}
	return nil
}

// DeleteLink implements LinkService.
func (m *Memory) DeleteLink(ctx context.Context, linkID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDelete); err != nil {
		return err
	}
	i := m.linkIndex(linkID)
	if i < 0 {
		return &RequestError{Op: OpDelete, Status: 404, Cause: ErrLinkNotFound}
	}
	m.edges = slices.Delete(m.edges, i, i+1)
	return nil
}

var demoTitles = []string{
	"Adopt event sourcing", "Use Postgres", "Outbox pattern", "Retry with backoff",
	"Migrate auth service", "Cache invalidation", "Feature flags", "Idempotent consumers",
	"Schema registry", "Blue/green deploys", "Rate limiting", "Circuit breaker",
	"Write API docs", "Trace sampling", "Dead letter queue", "Read replicas",
}

// DemoSnapshot generates a connected sample graph of n nodes.
func DemoSnapshot(rng *rand.Rand, n int) graph.Snapshot {
	var snap graph.Snapshot
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		t := graph.NodeTypes[rng.IntN(len(graph.NodeTypes))]
		node := graph.RawNode{
			ID:     graph.NodeID(t, fmt.Sprint(i+1)),
			Type:   t,
			ItemID: fmt.Sprint(i + 1),
			Title:  demoTitles[i%len(demoTitles)],
		}
		if t == graph.NodeProgress {
			node.Status = graph.Statuses[rng.IntN(len(graph.Statuses))]
		}
		snap.Nodes = append(snap.Nodes, node)
	}

	link := int64(1)
	addEdge := func(a, b int) {
		snap.Edges = append(snap.Edges, graph.RawEdge{
			ID:           graph.ConfirmedLinkID(link),
			Source:       snap.Nodes[a].ID,
			Target:       snap.Nodes[b].ID,
			Relationship: graph.RelationshipTypes[rng.IntN(len(graph.RelationshipTypes))],
			Timestamp:    base.Add(time.Duration(link) * time.Hour),
		})
		link++
	}
	for i := 1; i < n; i++ {
		addEdge(i, rng.IntN(i))
	}
	for i := 0; i < n/3; i++ {
		a, b := rng.IntN(n), rng.IntN(n)
		if a != b {
			addEdge(a, b)
		}
	}
	return snap
}
