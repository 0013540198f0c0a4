package render

import (
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// UIState is the interaction state that affects drawing.
type UIState struct {
	SelectedID     string
	FocusCenterID  string
	LinkSourceID   string
	AwaitingTarget bool
	SearchMatches  map[string]struct{}
	Now            time.Time
}

// Scene is one frame's input. Edges is the merged draw list.
type Scene struct {
	Nodes     []*graph.Node
	Edges     []*graph.Edge
	Transform geometry.Transform
	UI        UIState
}

// Renderer paints scenes. It only reads the scene.
type Renderer struct {
	theme Theme
}

// NewRenderer creates a Renderer with theme.
func NewRenderer(theme Theme) *Renderer {
	return &Renderer{theme: theme}
}

// Theme returns the renderer's theme.
func (r *Renderer) Theme() Theme { return r.theme }

// Draw paints s onto c: edges first, then nodes with their glyphs and labels,
// then the pulsing halo around a pending link source.
func (r *Renderer) Draw(c Canvas, s Scene) {
	c.Clear()
	c.Save()
	defer c.Restore()

	t := s.Transform
	if !t.Valid() {
		t = geometry.Identity()
	}
	c.Translate(t.X, t.Y)
	c.Scale(t.K)

	for _, e := range s.Edges {
		r.drawEdge(c, e)
	}
	c.SetLineDash(nil)
	c.SetAlpha(1)

	var linkSource *graph.Node
	for _, n := range s.Nodes {
		if !drawable(n) {
			continue
		}
		r.drawNode(c, n, s.UI)
		if n.ID == s.UI.LinkSourceID {
			linkSource = n
		}
	}

	if s.UI.AwaitingTarget && linkSource != nil {
		r.drawHalo(c, linkSource, s.UI.Now)
	}
}

func drawable(n *graph.Node) bool {
	return n != nil && n.Placed && n.Pos().IsFinite()
}

func (r *Renderer) drawEdge(c Canvas, e *graph.Edge) {
	if !drawable(e.Source) || !drawable(e.Target) {
		return
	}
	style := r.theme.EdgeStyle(e.Relationship)
	c.SetStrokeColor(style.Color)
	c.SetLineWidth(style.Width)
	if e.Optimistic {
		c.SetAlpha(r.theme.OptimisticAlpha)
		c.SetLineDash(r.theme.OptimisticDash)
	} else {
		c.SetAlpha(1)
		c.SetLineDash(style.Dash)
	}
	c.StrokeLine(e.Source.X, e.Source.Y, e.Target.X, e.Target.Y)
}

func (r *Renderer) drawNode(c Canvas, n *graph.Node, ui UIState) {
	radius := n.Radius()
	c.SetFillColor(r.theme.NodeColor(n))
	c.FillCircle(n.X, n.Y, radius)

	stroke := r.theme.StrokeFor(n.ID, ui)
	c.SetStrokeColor(stroke.Color)
	c.SetLineWidth(stroke.Width)
	c.StrokeCircle(n.X, n.Y, radius)

	if glyph := r.theme.Glyphs[n.Type]; glyph != "" {
		c.SetFillColor(r.theme.Glyph)
		c.FillText(glyph, n.X, n.Y, radius*0.9)
	}
	if n.Title != "" {
		c.SetFillColor(r.theme.Label)
		c.FillText(TruncateLabel(n.Title, r.theme.LabelRunes), n.X, n.Y+radius+r.theme.LabelOffset, r.theme.LabelSize)
	}
}

// drawHalo draws an expanding, fading ring whose phase repeats every HaloPeriod.
func (r *Renderer) drawHalo(c Canvas, n *graph.Node, now time.Time) {
	phase := HaloPhase(now, r.theme.HaloPeriod)
	radius := n.Radius()
	c.SetAlpha(0.6 * (1 - phase))
	c.SetStrokeColor(r.theme.LinkSource.Color)
	c.SetLineWidth(3)
	c.StrokeCircle(n.X, n.Y, radius+4+12*phase)
	c.SetAlpha(1)
}

// HaloPhase returns now's position within period as a fraction in [0, 1).
func HaloPhase(now time.Time, period time.Duration) float64 {
	if period <= 0 {
		return 0
	}
	return float64(now.UnixNano()%int64(period)) / float64(period)
}

// StrokeFor returns a node's outline. Link source beats focus center, which
// beats selection, which beats a search match.
func (t Theme) StrokeFor(id string, ui UIState) StrokeStyle {
	switch {
	case id == ui.LinkSourceID && id != "":
		return t.LinkSource
	case id == ui.FocusCenterID && id != "":
		return t.FocusCenter
	case id == ui.SelectedID && id != "":
		return t.Selected
	}
	if _, ok := ui.SearchMatches[id]; ok {
		return t.SearchMatch
	}
	return t.Default
}

// TruncateLabel shortens s to n runes plus an ellipsis.
func TruncateLabel(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
