package graph

import "strings"

// Filters restrict which snapshot elements enter the working set. An empty set allows everything.
type Filters struct {
	NodeTypes     map[NodeType]struct{}
	Statuses      map[ProgressStatus]struct{}
	Relationships map[RelationshipType]struct{}
}

// AllowsNode reports whether a raw node passes the type and status filters.
// Status filtering only applies to progress nodes.
func (f Filters) AllowsNode(n RawNode) bool {
	if len(f.NodeTypes) > 0 {
		if _, ok := f.NodeTypes[n.Type]; !ok {
			return false
		}
	}
	if n.Type == NodeProgress && len(f.Statuses) > 0 {
		if _, ok := f.Statuses[n.Status]; !ok {
			return false
		}
	}
	return true
}

// AllowsRelationship reports whether edges of type r pass the filter.
func (f Filters) AllowsRelationship(r RelationshipType) bool {
	if len(f.Relationships) == 0 {
		return true
	}
	_, ok := f.Relationships[r]
	return ok
}

// Equal reports whether two filter sets select the same elements.
func (f Filters) Equal(o Filters) bool {
	return sameSet(f.NodeTypes, o.NodeTypes) &&
		sameSet(f.Statuses, o.Statuses) &&
		sameSet(f.Relationships, o.Relationships)
}

func sameSet[K comparable](a, b map[K]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// SetOf builds a set from values.
func SetOf[K comparable](values ...K) map[K]struct{} {
	s := make(map[K]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// FocusMode restricts the view to the neighbourhood of a center node.
type FocusMode struct {
	Enabled        bool
	CenterNodeID   string
	HopDepth       int
	VisibleNodeIDs map[string]struct{}
}

// AllowsNode reports whether id is visible under focus mode. With an empty visible set
// every node of the focused fetch is shown.
func (f FocusMode) AllowsNode(id string) bool {
	if !f.Enabled || len(f.VisibleNodeIDs) == 0 {
		return true
	}
	_, ok := f.VisibleNodeIDs[id]
	return ok
}

// Equal reports whether two focus modes are the same.
func (f FocusMode) Equal(o FocusMode) bool {
	return f.Enabled == o.Enabled &&
		f.CenterNodeID == o.CenterNodeID &&
		f.HopDepth == o.HopDepth &&
		sameSet(f.VisibleNodeIDs, o.VisibleNodeIDs)
}

// MatchSearch returns the ids of nodes whose title or description contains query,
// case-insensitively. An empty query matches nothing.
func MatchSearch(nodes []*Node, query string) map[string]struct{} {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}
	matches := make(map[string]struct{})
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Description), query) {
			matches[n.ID] = struct{}{}
		}
	}
	return matches
}
