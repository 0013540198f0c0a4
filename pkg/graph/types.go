// Package graph contains the knowledge-graph data model shared by the engine:
// typed nodes, typed relationships, raw snapshots and the filters applied to them.
package graph

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
)

// NodeType is the kind of knowledge-graph entity a node represents.
type NodeType string

const (
	NodeDecision   NodeType = "decision"
	NodeProgress   NodeType = "progress"
	NodePattern    NodeType = "pattern"
	NodeCustomData NodeType = "custom_data"
)

// NodeTypes lists every known node type in display order.
var NodeTypes = []NodeType{NodeDecision, NodeProgress, NodePattern, NodeCustomData}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeDecision, NodeProgress, NodePattern, NodeCustomData:
		return true
	default:
		return false
	}
}

// Radius returns the visual radius used for drawing, hit-testing and collision.
func (t NodeType) Radius() float64 {
	switch t {
	case NodeDecision:
		return 20
	case NodePattern:
		return 18
	case NodeProgress:
		return 16
	case NodeCustomData:
		return 14
	default:
		return 14
	}
}

// ProgressStatus is the workflow state of a progress node.
type ProgressStatus string

const (
	StatusTodo       ProgressStatus = "TODO"
	StatusInProgress ProgressStatus = "IN_PROGRESS"
	StatusDone       ProgressStatus = "DONE"
)

// Statuses lists every known progress status.
var Statuses = []ProgressStatus{StatusTodo, StatusInProgress, StatusDone}

// RelationshipType names the kind of link between two items. The set is open:
// the backend accepts free-form values, the constants below are the ones with
// dedicated styling.
type RelationshipType string

const (
	RelatesTo         RelationshipType = "relates_to"
	Implements        RelationshipType = "implements"
	DependsOn         RelationshipType = "depends_on"
	Blocks            RelationshipType = "blocks"
	Clarifies         RelationshipType = "clarifies"
	Tracks            RelationshipType = "tracks"
	DerivedFrom       RelationshipType = "derived_from"
	BuildsOn          RelationshipType = "builds_on"
	Supersedes        RelationshipType = "supersedes"
	Resolves          RelationshipType = "resolves"
	RelatesToProgress RelationshipType = "relates_to_progress"
)

// RelationshipTypes lists the relationship types offered by the picker.
var RelationshipTypes = []RelationshipType{
	RelatesTo, Implements, DependsOn, Blocks, Clarifies, Tracks,
	DerivedFrom, BuildsOn, Supersedes, Resolves, RelatesToProgress,
}

// Node is a stable, simulation-owned graph node. The same *Node instance is kept
// across reconciliations so position and velocity survive refetches.
type Node struct {
	ID          string
	Type        NodeType
	ItemID      string
	Title       string
	Description string
	Status      ProgressStatus

	// Simulation state. Placed is false until the node gets its first position.
	X, Y   float64
	VX, VY float64
	FX, FY *float64
	Placed bool
}

// Pos returns the node's current position.
func (n *Node) Pos() geometry.Point {
	return geometry.Point{X: n.X, Y: n.Y}
}

// Radius returns the node's visual radius.
func (n *Node) Radius() float64 {
	return n.Type.Radius()
}

// Pinned reports whether the node is held in place by a drag.
func (n *Node) Pinned() bool {
	return n.FX != nil && n.FY != nil
}

// Pin fixes the node at (x, y) until Unpin is called.
func (n *Node) Pin(x, y float64) {
	fx, fy := x, y
	n.FX, n.FY = &fx, &fy
	n.X, n.Y = x, y
	n.VX, n.VY = 0, 0
}

// Unpin returns the node to free simulation.
func (n *Node) Unpin() {
	n.FX, n.FY = nil, nil
}

// Place assigns a position and marks the node as placed.
func (n *Node) Place(p geometry.Point) {
	n.X, n.Y = p.X, p.Y
	n.Placed = true
}

// Edge is a stable relationship between two stable nodes. Source and Target are
// always direct references to nodes present in the working set.
type Edge struct {
	ID           string
	Source       *Node
	Target       *Node
	Relationship RelationshipType
	Description  string
	Timestamp    time.Time
	Optimistic   bool
}

// Key identifies the edge by endpoints and relationship, ignoring its id.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source.ID, Target: e.Target.ID, Relationship: e.Relationship}
}

// EdgeKey is the (source, target, relationship) triple used for deduplication.
type EdgeKey struct {
	Source       string
	Target       string
	Relationship RelationshipType
}

// String returns a compact representation used in logs.
func (k EdgeKey) String() string {
	return fmt.Sprintf("%s-[%s]->%s", k.Source, k.Relationship, k.Target)
}
