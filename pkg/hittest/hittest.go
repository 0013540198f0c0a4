// Package hittest maps screen points to the nodes and edges under them.
package hittest

import (
	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// EdgeTolerance is the maximum graph-space distance for an edge hit.
const EdgeTolerance = 10.0

// NodeAt returns the first node whose visual circle contains p (graph space), or nil.
// Iteration order decides ties.
func NodeAt(nodes []*graph.Node, p geometry.Point) *graph.Node {
	for _, n := range nodes {
		if !n.Placed {
			continue
		}
		if geometry.InCircle(p, n.Pos(), n.Radius()) {
			return n
		}
	}
	return nil
}

// EdgesAt returns every edge whose segment lies within tol of p (graph space),
// in the order given.
func EdgesAt(edges []*graph.Edge, p geometry.Point, tol float64) []*graph.Edge {
	var hits []*graph.Edge
	for _, e := range edges {
		if e.Source == nil || e.Target == nil {
			continue
		}
		if geometry.SegmentDistance(p, e.Source.Pos(), e.Target.Pos()) <= tol {
			hits = append(hits, e)
		}
	}
	return hits
}

// IncidentEdges returns the edges touching nodeID.
func IncidentEdges(edges []*graph.Edge, nodeID string) []*graph.Edge {
	var out []*graph.Edge
	for _, e := range edges {
		if e.Source.ID == nodeID || e.Target.ID == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Hit is the result of testing one screen point.
type Hit struct {
	Graph geometry.Point
	Node  *graph.Node
	Edges []*graph.Edge
}

// Empty reports whether nothing was hit.
func (h Hit) Empty() bool {
	return h.Node == nil && len(h.Edges) == 0
}

// At inverts screen through t and tests it against nodes and edges.
func At(nodes []*graph.Node, edges []*graph.Edge, t geometry.Transform, screen geometry.Point) Hit {
	p := t.Invert(screen)
	return Hit{
		Graph: p,
		Node:  NodeAt(nodes, p),
		Edges: EdgesAt(edges, p, EdgeTolerance),
	}
}
