package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawNode is a node as returned by the backend. It carries no layout state.
type RawNode struct {
	ID          string         `json:"id" validate:"required"`
	Type        NodeType       `json:"type" validate:"required,oneof=decision progress pattern custom_data"`
	ItemID      string         `json:"item_id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      ProgressStatus `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
}

// RawEdge is a relationship as returned by the backend. Endpoints are plain ids.
type RawEdge struct {
	ID           string           `json:"id" validate:"required"`
	Source       string           `json:"source" validate:"required"`
	Target       string           `json:"target" validate:"required"`
	Relationship RelationshipType `json:"relationship_type" validate:"required,max=100"`
	Description  string           `json:"description,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Snapshot is one fetched view of the graph.
type Snapshot struct {
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
}

// Key identifies the raw edge by endpoints and relationship.
func (e RawEdge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Relationship: e.Relationship}
}

// NodeID builds the stable node id for a backend item.
func NodeID(t NodeType, itemID string) string {
	return string(t) + "-" + itemID
}

// SplitNodeID is the inverse of NodeID. It reports false for ids without a known type prefix.
func SplitNodeID(id string) (NodeType, string, bool) {
	for _, t := range NodeTypes {
		prefix := string(t) + "-"
		if strings.HasPrefix(id, prefix) && len(id) > len(prefix) {
			return t, id[len(prefix):], true
		}
	}
	return "", "", false
}

const (
	confirmedLinkPrefix = "link-"
	tempLinkPrefix      = "link-temp-"
)

// ConfirmedLinkID builds the id of a server-confirmed link.
func ConfirmedLinkID(linkID int64) string {
	return confirmedLinkPrefix + strconv.FormatInt(linkID, 10)
}

// TempLinkID builds the id of an optimistic link created at t.
func TempLinkID(t time.Time) string {
	return tempLinkPrefix + strconv.FormatInt(t.UnixMilli(), 10)
}

// IsTempLinkID reports whether id names an optimistic, unconfirmed link.
func IsTempLinkID(id string) bool {
	return strings.HasPrefix(id, tempLinkPrefix)
}

// ParseLinkID extracts the backend link id from a confirmed edge id.
func ParseLinkID(id string) (int64, error) {
	if IsTempLinkID(id) {
		return 0, fmt.Errorf("%w: %q is not confirmed yet", ErrInvalidLinkID, id)
	}
	if !strings.HasPrefix(id, confirmedLinkPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLinkID, id)
	}
	n, err := strconv.ParseInt(id[len(confirmedLinkPrefix):], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidLinkID, id, err)
	}
	return n, nil
}

// DecodeSnapshot parses a JSON snapshot document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return s, nil
}
