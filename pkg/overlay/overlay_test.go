package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func nodes() (a, b, c *graph.Node) {
	return &graph.Node{ID: "decision-1", Type: graph.NodeDecision},
		&graph.Node{ID: "pattern-2", Type: graph.NodePattern},
		&graph.Node{ID: "progress-3", Type: graph.NodeProgress}
}

func edge(id string, src, dst *graph.Node, rel graph.RelationshipType) *graph.Edge {
	return &graph.Edge{ID: id, Source: src, Target: dst, Relationship: rel}
}

func TestMergeDeduplicates(t *testing.T) {
	a, b, c := nodes()
	confirmed := edge("link-1", a, b, graph.RelatesTo)
	dupe := edge(graph.TempLinkID(t0), a, b, graph.RelatesTo)
	fresh := edge(graph.TempLinkID(t0.Add(time.Millisecond)), a, c, graph.RelatesTo)

	s := New(DefaultTTL)
	s.Add(dupe, t0)
	s.Add(fresh, t0)

	merged := s.Merge([]*graph.Edge{confirmed})
	require.Len(t, merged, 2)
	assert.Same(t, confirmed, merged[0])
	assert.Same(t, fresh, merged[1])
	assert.True(t, fresh.Optimistic)
}

func TestReconcileDropsConfirmed(t *testing.T) {
	a, b, c := nodes()
	s := New(DefaultTTL)
	s.Add(edge(graph.TempLinkID(t0), a, b, graph.Implements), t0)
	s.Add(edge(graph.TempLinkID(t0.Add(time.Second)), a, c, graph.Tracks), t0)

	removed := s.Reconcile([]*graph.Edge{edge("link-9", a, b, graph.Implements)})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, 0, s.Reconcile([]*graph.Edge{edge("link-10", a, c, graph.Blocks)}),
		"different relationship does not confirm")
}

func TestRemoveMatchingAndRollback(t *testing.T) {
	a, b, _ := nodes()
	s := New(DefaultTTL)
	e1 := edge(graph.TempLinkID(t0), a, b, graph.Blocks)
	s.Add(e1, t0)
	s.Add(edge(graph.TempLinkID(t0.Add(time.Second)), b, a, graph.Blocks), t0)

	assert.Equal(t, 1, s.RemoveMatching("pattern-2", "decision-1", graph.Blocks))
	assert.True(t, s.Rollback(e1.ID))
	assert.False(t, s.Rollback(e1.ID))
	assert.Equal(t, 0, s.Len())
}

func TestHiddenEdges(t *testing.T) {
	a, b, c := nodes()
	ab := edge("link-1", a, b, graph.RelatesTo)
	ac := edge("link-2", a, c, graph.RelatesTo)
	s := New(DefaultTTL)
	s.Hide("link-1")

	merged := s.Merge([]*graph.Edge{ab, ac})
	require.Len(t, merged, 1)
	assert.Same(t, ac, merged[0])

	assert.Equal(t, 0, s.ConfirmDeletions([]*graph.Edge{ab, ac}), "still on the server")
	assert.True(t, s.Hidden("link-1"))

	assert.Equal(t, 1, s.ConfirmDeletions([]*graph.Edge{ac}))
	assert.False(t, s.Hidden("link-1"))
}

func TestRebindDetachesMissingEndpoints(t *testing.T) {
	a, b, _ := nodes()
	e := edge(graph.TempLinkID(t0), a, b, graph.DependsOn)
	s := New(DefaultTTL)
	s.Add(e, t0)

	pool := map[string]*graph.Node{"decision-1": a}
	lookup := func(id string) (*graph.Node, bool) {
		n, ok := pool[id]
		return n, ok
	}

	s.Rebind(lookup)
	assert.Empty(t, s.Merge(nil), "detached edge is not drawn")
	assert.Equal(t, 1, s.Len(), "detached edge is kept")

	b2 := &graph.Node{ID: "pattern-2", Type: graph.NodePattern}
	pool["pattern-2"] = b2
	s.Rebind(lookup)
	merged := s.Merge(nil)
	require.Len(t, merged, 1)
	assert.Same(t, b2, merged[0].Target)
}

func TestExpire(t *testing.T) {
	a, b, c := nodes()
	s := New(30 * time.Second)
	old := edge(graph.TempLinkID(t0), a, b, graph.RelatesTo)
	young := edge(graph.TempLinkID(t0.Add(20*time.Second)), a, c, graph.RelatesTo)
	s.Add(old, t0)
	s.Add(young, t0.Add(20*time.Second))

	assert.Empty(t, s.Expire(t0.Add(29*time.Second)))
	expired := s.Expire(t0.Add(30 * time.Second))
	require.Len(t, expired, 1)
	assert.Same(t, old, expired[0])
	assert.Equal(t, 1, s.Len())

	assert.Nil(t, New(0).Expire(t0.Add(time.Hour)))
}

func TestClear(t *testing.T) {
	a, b, _ := nodes()
	s := New(DefaultTTL)
	s.Add(edge(graph.TempLinkID(t0), a, b, graph.RelatesTo), t0)
	s.Hide("link-4")
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.HiddenLen())
}

func TestDuplicates(t *testing.T) {
	a, b, c := nodes()
	all := []*graph.Edge{
		edge("link-1", a, b, graph.RelatesTo),
		edge("link-2", a, b, graph.RelatesTo),
		edge("link-3", a, b, graph.Blocks),
		edge("link-4", a, c, graph.RelatesTo),
	}
	assert.Equal(t, []string{"link-1", "link-2"}, Duplicates(all, all[1]))
}
