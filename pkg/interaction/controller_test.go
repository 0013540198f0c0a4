package interaction

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/hittest"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

type created struct {
	source, target string
	rel            graph.RelationshipType
	desc           string
}

type fakeHost struct {
	nodes     []*graph.Node
	edges     []*graph.Edge
	transform geometry.Transform

	alphaTargets []float64
	persisted    []string
	created      []created
	updated      []string
	deleted      []string
	focus        []string
	redraws      int
}

func newFakeHost() *fakeHost {
	x := node("decision-1", 100, 100)
	y := node("pattern-2", 300, 100)
	z := node("progress-3", 200, 300)
	return &fakeHost{
		nodes: []*graph.Node{x, y, z},
		edges: []*graph.Edge{
			{ID: "link-1", Source: x, Target: z, Relationship: graph.RelatesTo},
		},
		transform: geometry.Identity(),
	}
}

func node(id string, x, y float64) *graph.Node {
	t, item, _ := graph.SplitNodeID(id)
	n := &graph.Node{ID: id, Type: t, ItemID: item}
	n.Place(geometry.Point{X: x, Y: y})
	return n
}

func (h *fakeHost) HitTest(p geometry.Point) hittest.Hit {
	return hittest.At(h.nodes, h.edges, h.transform, p)
}

func (h *fakeHost) IncidentEdges(id string) []*graph.Edge { return hittest.IncidentEdges(h.edges, id) }
func (h *fakeHost) Transform() geometry.Transform         { return h.transform }
func (h *fakeHost) SetTransform(t geometry.Transform)     { h.transform = t }
func (h *fakeHost) SetAlphaTarget(a float64)              { h.alphaTargets = append(h.alphaTargets, a) }
func (h *fakeHost) PersistPosition(n *graph.Node)         { h.persisted = append(h.persisted, n.ID) }
func (h *fakeHost) RequestFocus(id string)                { h.focus = append(h.focus, id) }
func (h *fakeHost) Redraw()                               { h.redraws++ }

func (h *fakeHost) CreateLink(s, t *graph.Node, rel graph.RelationshipType, desc string) {
	h.created = append(h.created, created{s.ID, t.ID, rel, desc})
}

func (h *fakeHost) UpdateLink(e *graph.Edge, rel graph.RelationshipType, desc string) {
	h.updated = append(h.updated, e.ID+":"+string(rel)+":"+desc)
}

func (h *fakeHost) DeleteLink(e *graph.Edge) { h.deleted = append(h.deleted, e.ID) }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fakeClock                   { return &fakeClock{t: time.Unix(1700000000, 0)} }
func click(c *Controller, x, y float64)      { down(c, x, y); up(c, x, y) }
func down(c *Controller, x, y float64)       { c.HandlePointer(PointerEvent{Kind: PointerDown, X: x, Y: y}) }
func move(c *Controller, x, y float64)       { c.HandlePointer(PointerEvent{Kind: PointerMove, X: x, Y: y}) }
func up(c *Controller, x, y float64)         { c.HandlePointer(PointerEvent{Kind: PointerUp, X: x, Y: y}) }
func rightClick(c *Controller, x, y float64) { c.HandlePointer(PointerEvent{Kind: PointerContextMenu, X: x, Y: y}) }

func TestLinkCreationCycle(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	c.ToggleLinkMode()
	require.Equal(t, LinkAwaitingSource, c.State())

	click(c, 100, 100)
	require.Equal(t, LinkAwaitingTarget, c.State())
	assert.Equal(t, "decision-1", c.LinkSourceID())

	click(c, 100, 100)
	require.Equal(t, LinkAwaitingSource, c.State())
	assert.Nil(t, c.Link().Source)

	click(c, 100, 100)
	click(c, 300, 100)
	require.Equal(t, LinkChoosingRelationship, c.State())
	assert.Equal(t, "decision-1", c.Link().Source.ID)
	assert.Equal(t, "pattern-2", c.Link().Target.ID)
	assert.Equal(t, geometry.Point{X: 300, Y: 100}, c.Link().Anchor)

	require.NoError(t, c.ConfirmRelationship(graph.Implements, " because "))
	assert.Equal(t, LinkAwaitingSource, c.State())
	assert.Nil(t, c.Link().Source)
	assert.Nil(t, c.Link().Target)
	assert.Empty(t, c.LinkSourceID())
	require.Len(t, h.created, 1)
	assert.Equal(t, created{"decision-1", "pattern-2", graph.Implements, "because"}, h.created[0])
}

func TestLinkModeNodeClicksDoNotDrag(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	c.ToggleLinkMode()

	down(c, 100, 100)
	move(c, 150, 150)
	up(c, 150, 150)

	n := h.nodes[0]
	assert.Equal(t, geometry.Point{X: 100, Y: 100}, n.Pos())
	assert.Empty(t, h.persisted)
	assert.Empty(t, h.alphaTargets)
	assert.Equal(t, geometry.Identity(), h.transform, "pan is suppressed on a node")
	assert.Equal(t, LinkAwaitingSource, c.State(), "a moved press is not a click")
}

func TestLinkModeEmptyClickResets(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	c.ToggleLinkMode()
	click(c, 100, 100)
	click(c, 300, 100)
	require.Equal(t, LinkChoosingRelationship, c.State())

	click(c, 600, 600)
	assert.Equal(t, LinkAwaitingSource, c.State())
	assert.Equal(t, LinkPayload{}, c.Link())
}

func TestPickerNodeClickRestartsFromNode(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	c.ToggleLinkMode()
	click(c, 100, 100)
	click(c, 300, 100)

	click(c, 200, 300)
	assert.Equal(t, LinkAwaitingTarget, c.State())
	assert.Equal(t, "progress-3", c.LinkSourceID())
	assert.Nil(t, c.Link().Target)
}

func TestCancelPicker(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	assert.ErrorIs(t, c.CancelPicker(), ErrWrongState)

	c.ToggleLinkMode()
	click(c, 100, 100)
	click(c, 300, 100)
	require.NoError(t, c.CancelPicker())
	assert.Equal(t, LinkAwaitingSource, c.State())
	assert.Empty(t, h.created)
}

func TestConfirmRequiresRelationship(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	assert.ErrorIs(t, c.ConfirmRelationship(graph.RelatesTo, ""), ErrWrongState)

	c.ToggleLinkMode()
	click(c, 100, 100)
	click(c, 300, 100)
	assert.ErrorIs(t, c.ConfirmRelationship("  ", ""), ErrEmptyRelationship)
	assert.Equal(t, LinkChoosingRelationship, c.State())
}

func TestToggleLinkModeClearsSelection(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	click(c, 100, 100)
	require.Equal(t, "decision-1", c.Selected())

	c.HandleKey(KeyLinkMode)
	assert.Equal(t, LinkAwaitingSource, c.State())
	assert.Empty(t, c.Selected())

	c.HandleKey(KeyLinkMode)
	assert.Equal(t, Navigate, c.State())
}

func TestSelectAndClear(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	click(c, 300, 100)
	assert.Equal(t, "pattern-2", c.Selected())

	click(c, 150, 200)
	assert.Equal(t, "pattern-2", c.Selected(), "clicking an edge keeps the selection")

	click(c, 600, 600)
	assert.Empty(t, c.Selected())
}

func TestDoubleClickRequestsFocus(t *testing.T) {
	h := newFakeHost()
	clock := newClock()
	c := NewController(h, WithClock(clock.now))

	click(c, 100, 100)
	clock.advance(200 * time.Millisecond)
	click(c, 100, 100)
	assert.Equal(t, []string{"decision-1"}, h.focus)

	clock.advance(time.Second)
	click(c, 300, 100)
	clock.advance(400 * time.Millisecond)
	click(c, 300, 100)
	assert.Len(t, h.focus, 1, "clicks outside the window are not a double click")

	clock.advance(time.Second)
	click(c, 100, 100)
	clock.advance(100 * time.Millisecond)
	click(c, 300, 100)
	assert.Len(t, h.focus, 1, "clicks on different nodes are not a double click")
}

func TestNoDoubleClickInLinkMode(t *testing.T) {
	h := newFakeHost()
	c := NewController(h, WithClock(newClock().now))
	c.ToggleLinkMode()
	click(c, 100, 100)
	click(c, 100, 100)
	assert.Empty(t, h.focus)
}

func TestDragPinsPersistsAndUnpins(t *testing.T) {
	h := newFakeHost()
	h.transform = geometry.Transform{X: 10, Y: 20, K: 2}
	c := NewController(h)
	n := h.nodes[0]
	screen := h.transform.Apply(n.Pos())

	down(c, screen.X, screen.Y)
	require.True(t, n.Pinned())
	assert.Same(t, n, c.Dragging())
	assert.Equal(t, []float64{visualization.DragAlphaTarget}, h.alphaTargets)

	move(c, screen.X+40, screen.Y+20)
	require.True(t, n.Pinned())
	assert.InDelta(t, 120, *n.FX, 1e-9)
	assert.InDelta(t, 110, *n.FY, 1e-9)

	up(c, screen.X+40, screen.Y+20)
	assert.False(t, n.Pinned())
	assert.Nil(t, c.Dragging())
	assert.Equal(t, []string{"decision-1"}, h.persisted)
	assert.Equal(t, visualization.DefaultAlphaTarget, h.alphaTargets[len(h.alphaTargets)-1])
	assert.InDelta(t, 120, n.X, 1e-9)
	assert.Equal(t, geometry.Transform{X: 10, Y: 20, K: 2}, h.transform, "drag never pans")
	assert.Empty(t, c.Selected(), "a drag is not a click")
}

func TestShortDragIsClick(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	down(c, 100, 100)
	move(c, 101, 101)
	up(c, 101, 101)

	assert.Empty(t, h.persisted)
	assert.False(t, h.nodes[0].Pinned())
	assert.Equal(t, "decision-1", c.Selected())
}

func TestPanOnEmptySpace(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	down(c, 600, 600)
	move(c, 601, 600)
	assert.Equal(t, geometry.Identity(), h.transform, "movement under tolerance does not pan")
	move(c, 620, 630)
	move(c, 625, 640)
	up(c, 625, 640)

	assert.Equal(t, geometry.Transform{X: 25, Y: 40, K: 1}, h.transform)
}

func TestWheelZoomClamped(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	for i := 0; i < 50; i++ {
		c.HandlePointer(PointerEvent{Kind: PointerWheel, X: 200, Y: 200, DeltaY: -500})
	}
	assert.Equal(t, geometry.MaxScale, h.transform.K)
	anchor := h.transform.Invert(geometry.Point{X: 200, Y: 200})
	assert.InDelta(t, 200, anchor.X, 1e-9)
	assert.InDelta(t, 200, anchor.Y, 1e-9)

	for i := 0; i < 50; i++ {
		c.HandlePointer(PointerEvent{Kind: PointerWheel, X: 200, Y: 200, DeltaY: 500})
	}
	assert.Equal(t, geometry.MinScale, h.transform.K)
}

func TestContextMenuSingleEdge(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	rightClick(c, 150, 200)
	require.Equal(t, EdgeMenuSingle, c.State())
	assert.Equal(t, "link-1", c.Menu().Edge.ID)

	require.NoError(t, c.SaveEdge(graph.Clarifies, "reworded"))
	assert.Equal(t, Navigate, c.State())
	assert.Equal(t, []string{"link-1:clarifies:reworded"}, h.updated)
	assert.Equal(t, EdgeMenuPayload{}, c.Menu())
}

func TestContextMenuAmbiguous(t *testing.T) {
	h := newFakeHost()
	x, z := h.nodes[0], h.nodes[2]
	h.edges = append(h.edges, &graph.Edge{ID: "link-2", Source: z, Target: x, Relationship: graph.Blocks})
	c := NewController(h)

	rightClick(c, 150, 200)
	require.Equal(t, EdgeMenuMulti, c.State())
	assert.Equal(t, MenuAmbiguous, c.Menu().Reason)
	assert.Len(t, c.Menu().Edges, 2)

	assert.ErrorIs(t, c.ChooseEdge("link-9"), ErrUnknownEdge)
	require.NoError(t, c.ChooseEdge("link-2"))
	require.Equal(t, EdgeMenuSingle, c.State())

	require.NoError(t, c.DeleteEdge())
	assert.Equal(t, []string{"link-2"}, h.deleted)
	assert.Equal(t, Navigate, c.State())
}

func TestContextMenuIncidentEdges(t *testing.T) {
	h := newFakeHost()
	x, y := h.nodes[0], h.nodes[1]
	h.edges = append(h.edges, &graph.Edge{ID: "link-2", Source: x, Target: y, Relationship: graph.Implements})
	c := NewController(h)

	rightClick(c, 88, 88)
	require.Equal(t, EdgeMenuMulti, c.State())
	assert.Equal(t, MenuIncident, c.Menu().Reason)
	assert.Equal(t, "decision-1", c.Menu().NodeID)
	assert.Len(t, c.Menu().Edges, 2)

	assert.ErrorIs(t, c.DeleteEdges("link-1", "nope"), ErrUnknownEdge)
	assert.Empty(t, h.deleted)
	require.NoError(t, c.DeleteEdges("link-1", "link-2"))
	assert.Equal(t, []string{"link-1", "link-2"}, h.deleted)
	assert.Equal(t, Navigate, c.State())
}

func TestContextMenuNothingHit(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	rightClick(c, 300, 100)
	assert.Equal(t, Navigate, c.State(), "node without edges opens nothing")
	rightClick(c, 700, 700)
	assert.Equal(t, Navigate, c.State())

	c.ToggleLinkMode()
	rightClick(c, 150, 200)
	assert.Equal(t, LinkAwaitingSource, c.State(), "context menu only in navigate")
}

func TestPointerDownClosesMenu(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	rightClick(c, 150, 200)
	require.Equal(t, EdgeMenuSingle, c.State())

	click(c, 100, 100)
	assert.Equal(t, Navigate, c.State())
	assert.Empty(t, c.Selected(), "the closing click is consumed")
	assert.Empty(t, h.deleted)
}

func TestEscape(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)

	click(c, 100, 100)
	c.HandleKey(KeyEscape)
	assert.Empty(t, c.Selected())

	c.ToggleLinkMode()
	click(c, 100, 100)
	click(c, 300, 100)
	c.HandleKey(KeyEscape)
	assert.Equal(t, LinkAwaitingSource, c.State())
	c.HandleKey(KeyEscape)
	assert.Equal(t, Navigate, c.State())

	rightClick(c, 150, 200)
	c.HandleKey(KeyEscape)
	assert.Equal(t, Navigate, c.State())
}

func TestCommandsRejectWrongState(t *testing.T) {
	c := NewController(newFakeHost())
	for name, err := range map[string]error{
		"choose":  c.ChooseEdge("link-1"),
		"save":    c.SaveEdge(graph.RelatesTo, ""),
		"delete":  c.DeleteEdge(),
		"deletes": c.DeleteEdges("link-1"),
		"cancel":  c.CancelEdgeMenu(),
	} {
		assert.True(t, errors.Is(err, ErrWrongState), name)
	}
}

func TestForgetDropsStaleReferences(t *testing.T) {
	h := newFakeHost()
	c := NewController(h)
	click(c, 100, 100)
	c.Forget(func(id string) bool { return id != "decision-1" })
	assert.Empty(t, c.Selected())

	c.ToggleLinkMode()
	click(c, 300, 100)
	c.Forget(func(id string) bool { return id != "pattern-2" })
	assert.Equal(t, LinkAwaitingSource, c.State())
	assert.Empty(t, c.LinkSourceID())
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "link_awaiting_target", LinkAwaitingTarget.String())
	assert.True(t, LinkChoosingRelationship.InLinkMode())
	assert.False(t, EdgeMenuMulti.InLinkMode())
	assert.True(t, EdgeMenuMulti.InEdgeMenu())
	assert.Equal(t, "wheel", PointerWheel.String())
}
