package interaction

import (
	"math"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/hittest"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// Host is the engine surface the controller drives. Calls are made
// synchronously from the controller's goroutine; anything that does I/O must
// return without waiting for it.
type Host interface {
	HitTest(screen geometry.Point) hittest.Hit
	IncidentEdges(nodeID string) []*graph.Edge
	Transform() geometry.Transform
	SetTransform(t geometry.Transform)
	SetAlphaTarget(target float64)
	PersistPosition(n *graph.Node)
	CreateLink(source, target *graph.Node, rel graph.RelationshipType, description string)
	UpdateLink(e *graph.Edge, rel graph.RelationshipType, description string)
	DeleteLink(e *graph.Edge)
	RequestFocus(nodeID string)
	Redraw()
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDrag
	gesturePan
	gesturePress
)

// gesture tracks one pointer down/up cycle.
type gesture struct {
	kind  gestureKind
	hit   hittest.Hit
	start geometry.Point
	last  geometry.Point
	moved bool
}

type lastClick struct {
	nodeID string
	at     time.Time
}

// Controller is the interaction state machine. It is not safe for concurrent
// use.
type Controller struct {
	host   Host
	logger logging.Logger
	now    func() time.Time

	state    State
	link     LinkPayload
	menu     EdgeMenuPayload
	selected string

	gesture gesture
	click   lastClick
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for state transitions.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock replaces time.Now for double-click detection.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller in the Navigate state.
func NewController(host Host, opts ...Option) *Controller {
	c := &Controller{
		host:   host,
		logger: logging.NewNopLogger(),
		now:    time.Now,
		state:  Navigate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Selected returns the selected node id, or "".
func (c *Controller) Selected() string { return c.selected }

// Link returns the link creation payload. It is zero outside link mode.
func (c *Controller) Link() LinkPayload { return c.link }

// Menu returns the edge menu payload. It is zero unless a menu is open.
func (c *Controller) Menu() EdgeMenuPayload { return c.menu }

// Dragging returns the node being dragged, or nil.
func (c *Controller) Dragging() *graph.Node {
	if c.gesture.kind != gestureDrag {
		return nil
	}
	return c.gesture.hit.Node
}

// LinkSourceID returns the id of the chosen link source, or "".
func (c *Controller) LinkSourceID() string {
	if c.link.Source == nil {
		return ""
	}
	return c.link.Source.ID
}

// transition moves to next and drops payloads that do not belong to it.
func (c *Controller) transition(next State) {
	if !next.InLinkMode() {
		c.link = LinkPayload{}
	}
	if !next.InEdgeMenu() {
		c.menu = EdgeMenuPayload{}
	}
	if next != Navigate {
		c.selected = ""
	}
	if next != c.state {
		c.logger.Debug("interaction state changed",
			logging.String("from", c.state.String()),
			logging.State(next.String()))
	}
	c.state = next
	c.host.Redraw()
}

// Forget drops references to nodes and edges that left the working set.
// keepNode reports whether a node id is still present.
func (c *Controller) Forget(keepNode func(id string) bool) {
	if c.selected != "" && !keepNode(c.selected) {
		c.selected = ""
	}
	switch {
	case c.state.InLinkMode():
		if (c.link.Source != nil && !keepNode(c.link.Source.ID)) ||
			(c.link.Target != nil && !keepNode(c.link.Target.ID)) {
			c.link = LinkPayload{}
			c.transition(LinkAwaitingSource)
		}
	case c.state.InEdgeMenu():
		if c.menu.NodeID != "" && !keepNode(c.menu.NodeID) {
			c.transition(Navigate)
		}
	}
}

// HandlePointer processes one pointer event.
func (c *Controller) HandlePointer(ev PointerEvent) {
	switch ev.Kind {
	case PointerDown:
		c.pointerDown(ev.Point())
	case PointerMove:
		c.pointerMove(ev.Point())
	case PointerUp:
		c.pointerUp(ev.Point())
	case PointerWheel:
		c.wheel(ev.Point(), ev.DeltaY)
	case PointerContextMenu:
		c.contextMenu(ev.Point())
	}
}

func (c *Controller) pointerDown(p geometry.Point) {
	if c.gesture.kind != gestureNone {
		c.pointerUp(c.gesture.last)
	}
	if c.state.InEdgeMenu() {
		c.transition(Navigate)
		return
	}

	hit := c.host.HitTest(p)
	g := gesture{hit: hit, start: p, last: p}
	switch {
	case hit.Node != nil && c.state.InLinkMode():
		g.kind = gesturePress
	case hit.Node != nil:
		g.kind = gestureDrag
		hit.Node.Pin(hit.Node.X, hit.Node.Y)
		c.host.SetAlphaTarget(visualization.DragAlphaTarget)
	default:
		g.kind = gesturePan
	}
	c.gesture = g
}

func (c *Controller) pointerMove(p geometry.Point) {
	g := &c.gesture
	if g.kind == gestureNone {
		return
	}
	if geometry.Distance(p, g.start) >= ClickTolerance {
		g.moved = true
	}

	switch g.kind {
	case gestureDrag:
		gp := c.host.Transform().Invert(p)
		g.hit.Node.Pin(gp.X, gp.Y)
		c.host.Redraw()
	case gesturePan:
		if g.moved {
			c.host.SetTransform(c.host.Transform().Translate(p.X-g.last.X, p.Y-g.last.Y))
		}
	}
	if g.kind != gesturePan || g.moved {
		g.last = p
	}
}

func (c *Controller) pointerUp(p geometry.Point) {
	g := c.gesture
	c.gesture = gesture{}
	if g.kind == gestureNone {
		return
	}
	if geometry.Distance(p, g.start) >= ClickTolerance {
		g.moved = true
	}

	switch g.kind {
	case gestureDrag:
		n := g.hit.Node
		if g.moved {
			gp := c.host.Transform().Invert(p)
			n.Pin(gp.X, gp.Y)
			c.host.PersistPosition(n)
		}
		n.Unpin()
		c.host.SetAlphaTarget(visualization.DefaultAlphaTarget)
		if !g.moved {
			c.clickNode(n, p)
		}
	case gesturePress:
		if !g.moved {
			c.clickNode(g.hit.Node, p)
		}
	case gesturePan:
		if !g.moved {
			c.clickEmpty(g.hit)
		}
	}
}

func (c *Controller) wheel(p geometry.Point, deltaY float64) {
	if c.gesture.kind == gestureDrag || deltaY == 0 {
		return
	}
	factor := math.Exp(-deltaY * WheelZoomRate)
	c.host.SetTransform(c.host.Transform().ZoomAt(p, factor))
}

func (c *Controller) clickNode(n *graph.Node, p geometry.Point) {
	switch c.state {
	case Navigate:
		now := c.now()
		if c.click.nodeID == n.ID && now.Sub(c.click.at) <= DoubleClickWindow {
			c.click = lastClick{}
			c.selected = n.ID
			c.logger.Debug("focus requested", logging.NodeID(n.ID))
			c.host.RequestFocus(n.ID)
			c.host.Redraw()
			return
		}
		c.click = lastClick{nodeID: n.ID, at: now}
		c.selected = n.ID
		c.host.Redraw()

	case LinkAwaitingSource:
		c.transition(LinkAwaitingTarget)
		c.link = LinkPayload{Source: n}

	case LinkAwaitingTarget:
		if c.link.Source == nil || c.link.Source.ID == n.ID {
			c.transition(LinkAwaitingSource)
			c.link = LinkPayload{}
			return
		}
		c.transition(LinkChoosingRelationship)
		c.link.Target = n
		c.link.Anchor = p

	case LinkChoosingRelationship:
		// Picking another node abandons the open picker and starts over from n.
		c.link = LinkPayload{Source: n}
		c.transition(LinkAwaitingTarget)
	}
}

func (c *Controller) clickEmpty(hit hittest.Hit) {
	c.click = lastClick{}
	switch {
	case c.state.InLinkMode():
		c.link = LinkPayload{}
		c.transition(LinkAwaitingSource)
	case c.state == Navigate && len(hit.Edges) == 0 && c.selected != "":
		c.selected = ""
		c.host.Redraw()
	}
}

func (c *Controller) contextMenu(p geometry.Point) {
	if c.state != Navigate || c.gesture.kind != gestureNone {
		return
	}
	hit := c.host.HitTest(p)

	var menu EdgeMenuPayload
	next := Navigate
	switch {
	case len(hit.Edges) == 1:
		menu = EdgeMenuPayload{Edges: hit.Edges, Edge: hit.Edges[0], Anchor: p}
		next = EdgeMenuSingle
	case len(hit.Edges) > 1:
		menu = EdgeMenuPayload{Edges: hit.Edges, Anchor: p, Reason: MenuAmbiguous}
		next = EdgeMenuMulti
	case hit.Node != nil:
		incident := c.host.IncidentEdges(hit.Node.ID)
		if len(incident) == 0 {
			return
		}
		menu = EdgeMenuPayload{Edges: incident, Anchor: p, NodeID: hit.Node.ID, Reason: MenuIncident}
		next = EdgeMenuMulti
	default:
		return
	}
	c.transition(next)
	c.menu = menu
}

// HandleKey processes a keyboard shortcut.
func (c *Controller) HandleKey(k Key) {
	switch k {
	case KeyEscape:
		c.Escape()
	case KeyLinkMode:
		c.ToggleLinkMode()
	}
}
