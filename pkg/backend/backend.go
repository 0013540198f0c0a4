// Package backend holds the collaborators the engine fetches graph data from
// and sends link mutations to, with an HTTP client, an in-memory fake and a
// snapshot-file source.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

var (
	ErrStatus       = errors.New("unexpected response status")
	ErrLinkNotFound = errors.New("link not found")
	ErrNodeNotFound = errors.New("node not found")
	ErrReadOnly     = errors.New("graph source is read-only")
)

// Link operation names used in errors, logs and metrics.
const (
	OpFetch  = "fetch"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// FocusRequest restricts a fetch to the neighborhood of one node.
type FocusRequest struct {
	CenterNodeID string
	HopDepth     int
}

// FetchRequest parameterizes a snapshot fetch.
type FetchRequest struct {
	// NodeTypes limits the returned node types; empty means all.
	NodeTypes []graph.NodeType
	Focus     *FocusRequest
	Limit     int
}

// GraphSource provides graph snapshots.
type GraphSource interface {
	FetchSnapshot(ctx context.Context, req FetchRequest) (graph.Snapshot, error)
}

// LinkService mutates relationships.
type LinkService interface {
	CreateLink(ctx context.Context, req graph.CreateLinkRequest) (graph.CreatedLink, error)
	UpdateLink(ctx context.Context, req graph.UpdateLinkRequest) error
	DeleteLink(ctx context.Context, linkID int64) error
}

// RequestError describes a failed backend call.
type RequestError struct {
	Op     string
	Status int
	Cause  error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// Is reports whether target matches the cause.
func (e *RequestError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ReadOnlyLinks rejects every mutation. It pairs with sources that cannot
// store links, such as a snapshot file.
type ReadOnlyLinks struct{}

func (ReadOnlyLinks) CreateLink(context.Context, graph.CreateLinkRequest) (graph.CreatedLink, error) {
	return graph.CreatedLink{}, &RequestError{Op: OpCreate, Cause: ErrReadOnly}
}

func (ReadOnlyLinks) UpdateLink(context.Context, graph.UpdateLinkRequest) error {
	return &RequestError{Op: OpUpdate, Cause: ErrReadOnly}
}

func (ReadOnlyLinks) DeleteLink(context.Context, int64) error {
	return &RequestError{Op: OpDelete, Cause: ErrReadOnly}
}
