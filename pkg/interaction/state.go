// Package interaction turns pointer and key input into graph view actions.
//
// The controller is an explicit state machine. Each state owns at most one
// payload record, so combinations such as an open edge menu during link
// creation cannot be represented.
package interaction

import (
	"errors"

	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

var (
	ErrWrongState        = errors.New("command not valid in current state")
	ErrUnknownEdge       = errors.New("edge not in menu")
	ErrEmptyRelationship = errors.New("relationship type is required")
)

// State is the controller's current mode.
type State int

const (
	Navigate State = iota
	LinkAwaitingSource
	LinkAwaitingTarget
	LinkChoosingRelationship
	EdgeMenuSingle
	EdgeMenuMulti
)

func (s State) String() string {
	switch s {
	case Navigate:
		return "navigate"
	case LinkAwaitingSource:
		return "link_awaiting_source"
	case LinkAwaitingTarget:
		return "link_awaiting_target"
	case LinkChoosingRelationship:
		return "link_choosing_relationship"
	case EdgeMenuSingle:
		return "edge_menu_single"
	case EdgeMenuMulti:
		return "edge_menu_multi"
	default:
		return "unknown"
	}
}

// InLinkMode reports whether s is one of the link creation states.
func (s State) InLinkMode() bool {
	return s == LinkAwaitingSource || s == LinkAwaitingTarget || s == LinkChoosingRelationship
}

// InEdgeMenu reports whether an edge context menu is open.
func (s State) InEdgeMenu() bool {
	return s == EdgeMenuSingle || s == EdgeMenuMulti
}

// LinkPayload is carried by the link creation states. Source is set from
// LinkAwaitingTarget on; Target and Anchor only in LinkChoosingRelationship.
type LinkPayload struct {
	Source *graph.Node
	Target *graph.Node
	Anchor geometry.Point
}

// MenuReason says why a multi-edge menu was opened.
type MenuReason int

const (
	// MenuAmbiguous lists several edges that were all under the cursor.
	MenuAmbiguous MenuReason = iota
	// MenuIncident lists every edge touching the right-clicked node.
	MenuIncident
)

// EdgeMenuPayload is carried by the edge menu states. Edges is the list shown
// by EdgeMenuMulti; Edge is the edge being edited in EdgeMenuSingle.
type EdgeMenuPayload struct {
	Edges  []*graph.Edge
	Edge   *graph.Edge
	Anchor geometry.Point
	NodeID string
	Reason MenuReason
}
