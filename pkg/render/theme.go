package render

import (
	"image/color"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// EdgeStyle is how one relationship type is stroked.
type EdgeStyle struct {
	Color color.RGBA
	Width float64
	Dash  []float64
}

// StrokeStyle is a node outline.
type StrokeStyle struct {
	Color color.RGBA
	Width float64
}

// Theme holds every color and size the renderer uses.
type Theme struct {
	Background color.RGBA
	Label      color.RGBA
	Glyph      color.RGBA

	NodeFill   map[graph.NodeType]color.RGBA
	StatusFill map[graph.ProgressStatus]color.RGBA
	Glyphs     map[graph.NodeType]string

	Edges       map[graph.RelationshipType]EdgeStyle
	DefaultEdge EdgeStyle
	// OptimisticAlpha and OptimisticDash mark edges awaiting confirmation.
	OptimisticAlpha float64
	OptimisticDash  []float64

	LinkSource  StrokeStyle
	FocusCenter StrokeStyle
	Selected    StrokeStyle
	SearchMatch StrokeStyle
	Default     StrokeStyle

	LabelSize   float64
	LabelOffset float64
	LabelRunes  int
	HaloPeriod  time.Duration
}

// DefaultTheme returns the standard palette.
func DefaultTheme() Theme {
	return Theme{
		Background: Hex("#111827"),
		Label:      Hex("#e5e7eb"),
		Glyph:      Hex("#ffffff"),

		NodeFill: map[graph.NodeType]color.RGBA{
			graph.NodeDecision:   Hex("#3b82f6"),
			graph.NodeProgress:   Hex("#8b5cf6"),
			graph.NodePattern:    Hex("#ec4899"),
			graph.NodeCustomData: Hex("#14b8a6"),
		},
		StatusFill: map[graph.ProgressStatus]color.RGBA{
			graph.StatusTodo:       Hex("#f59e0b"),
			graph.StatusInProgress: Hex("#8b5cf6"),
			graph.StatusDone:       Hex("#10b981"),
		},
		Glyphs: map[graph.NodeType]string{
			graph.NodeDecision:   "D",
			graph.NodeProgress:   "P",
			graph.NodePattern:    "R",
			graph.NodeCustomData: "C",
		},

		Edges: map[graph.RelationshipType]EdgeStyle{
			graph.RelatesTo:         {Color: Hex("#9ca3af"), Width: 1.5},
			graph.Implements:        {Color: Hex("#3b82f6"), Width: 2},
			graph.DependsOn:         {Color: Hex("#f59e0b"), Width: 2, Dash: []float64{6, 4}},
			graph.Blocks:            {Color: Hex("#ef4444"), Width: 2.5},
			graph.Clarifies:         {Color: Hex("#a78bfa"), Width: 1.5, Dash: []float64{2, 3}},
			graph.Tracks:            {Color: Hex("#10b981"), Width: 1.5, Dash: []float64{4, 4}},
			graph.DerivedFrom:       {Color: Hex("#ec4899"), Width: 1.5, Dash: []float64{8, 4}},
			graph.BuildsOn:          {Color: Hex("#14b8a6"), Width: 2},
			graph.Supersedes:        {Color: Hex("#6b7280"), Width: 2, Dash: []float64{10, 3, 2, 3}},
			graph.Resolves:          {Color: Hex("#22c55e"), Width: 2},
			graph.RelatesToProgress: {Color: Hex("#8b5cf6"), Width: 1.5, Dash: []float64{3, 3}},
		},
		DefaultEdge:     EdgeStyle{Color: Hex("#64748b"), Width: 1.5},
		OptimisticAlpha: 0.6,
		OptimisticDash:  []float64{4, 4},

		LinkSource:  StrokeStyle{Color: Hex("#ef4444"), Width: 4},
		FocusCenter: StrokeStyle{Color: Hex("#f97316"), Width: 4},
		Selected:    StrokeStyle{Color: Hex("#fbbf24"), Width: 3},
		SearchMatch: StrokeStyle{Color: Hex("#22d3ee"), Width: 3},
		Default:     StrokeStyle{Color: Hex("#1f2937"), Width: 1.5},

		LabelSize:   11,
		LabelOffset: 12,
		LabelRunes:  20,
		HaloPeriod:  1200 * time.Millisecond,
	}
}

// EdgeStyle returns the style for rel, falling back to DefaultEdge.
func (t Theme) EdgeStyle(rel graph.RelationshipType) EdgeStyle {
	if s, ok := t.Edges[rel]; ok {
		return s
	}
	return t.DefaultEdge
}

// NodeColor returns a node's fill. Progress nodes are colored by status.
func (t Theme) NodeColor(n *graph.Node) color.RGBA {
	if n.Type == graph.NodeProgress {
		if c, ok := t.StatusFill[n.Status]; ok {
			return c
		}
	}
	if c, ok := t.NodeFill[n.Type]; ok {
		return c
	}
	return t.DefaultEdge.Color
}
