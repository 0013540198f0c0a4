package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/backend"
	"github.com/dd0wney/cluso-graphview/pkg/dispatch"
	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/hittest"
	"github.com/dd0wney/cluso-graphview/pkg/interaction"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/overlay"
	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

var _ interaction.Host = (*Engine)(nil)

// HitTest resolves a screen point against the visible nodes and edges.
func (e *Engine) HitTest(screen geometry.Point) hittest.Hit {
	return hittest.At(e.nodes, e.visible, e.transform, screen)
}

// IncidentEdges returns the visible edges touching nodeID.
func (e *Engine) IncidentEdges(nodeID string) []*graph.Edge {
	return hittest.IncidentEdges(e.visible, nodeID)
}

// Transform returns the current pan/zoom.
func (e *Engine) Transform() geometry.Transform { return e.transform }

// SetTransform replaces the pan/zoom. Non-invertible transforms are ignored.
func (e *Engine) SetTransform(t geometry.Transform) {
	if !t.Valid() {
		e.logger.Debug("ignoring invalid transform", logging.Any("transform", t))
		return
	}
	e.transform = t
	e.dirty = true
}

// SetAlphaTarget sets the simulation's temperature floor.
func (e *Engine) SetAlphaTarget(target float64) {
	e.sim.SetAlphaTarget(target)
}

// Redraw marks the frame dirty.
func (e *Engine) Redraw() { e.dirty = true }

// PersistPosition schedules a debounced write of n's position.
func (e *Engine) PersistPosition(n *graph.Node) {
	if e.closed || !n.Pos().IsFinite() {
		return
	}
	if err := e.positions.Put(n.ID, n.Pos()); err != nil {
		e.logger.Warn("failed to record node position", logging.NodeID(n.ID), logging.Error(err))
	}
}

// RequestFocus enters focus mode around nodeID.
func (e *Engine) RequestFocus(nodeID string) {
	e.logger.Info("focusing on node", logging.NodeID(nodeID), logging.Int("hops", e.cfg.hopDepth))
	e.SetFocus(nodeID, e.cfg.hopDepth)
}

// CreateLink adds an optimistic edge and sends the create request. A failed
// request rolls the edge back; a successful one refetches so the confirmed
// edge replaces the optimistic one.
func (e *Engine) CreateLink(source, target *graph.Node, rel graph.RelationshipType, description string) {
	if e.closed {
		return
	}
	req := graph.CreateLinkFor(source, target, rel, description)
	if err := validation.ValidateCreateLink(&req); err != nil {
		e.logger.Warn("rejected link", logging.Operation(backend.OpCreate), logging.Error(err))
		return
	}

	edge := &graph.Edge{
		ID:           e.tempLinkID(),
		Source:       source,
		Target:       target,
		Relationship: rel,
		Description:  description,
	}
	e.overlay.Add(edge, e.cfg.now())
	e.refreshVisible()
	e.sim.Nudge(max(e.sim.Alpha(), visualization.AlphaSmallChange))

	tempID := edge.ID
	e.dispatcher.Go(backend.OpCreate, func(ctx context.Context) dispatch.Completion {
		start := time.Now()
		created, err := e.links.CreateLink(ctx, req)
		e.cfg.metrics.RecordLinkRequest(backend.OpCreate, time.Since(start), err)
		return func() {
			if err != nil {
				e.logger.Warn("link create failed, rolling back",
					logging.Operation(backend.OpCreate), logging.EdgeID(tempID), logging.Error(err))
				if e.overlay.Rollback(tempID) {
					e.refreshVisible()
				}
				return
			}
			e.logger.Info("link created",
				logging.EdgeID(graph.ConfirmedLinkID(created.ID)),
				logging.String("relationship", string(rel)))
			e.Refresh()
		}
	})
}

// tempLinkID returns an optimistic id not used by any pending edge.
func (e *Engine) tempLinkID() string {
	t := e.cfg.now()
	for {
		id := graph.TempLinkID(t)
		if _, taken := e.overlay.Edge(id); !taken {
			return id
		}
		t = t.Add(time.Millisecond)
	}
}

// UpdateLink applies the new relationship and description locally and sends
// the update. A failed request restores the previous values.
func (e *Engine) UpdateLink(edge *graph.Edge, rel graph.RelationshipType, description string) {
	if e.closed {
		return
	}
	linkID, err := graph.ParseLinkID(edge.ID)
	if err != nil {
		e.logger.Warn("cannot update unconfirmed link", logging.EdgeID(edge.ID), logging.Error(err))
		return
	}

	req := graph.UpdateLinkRequest{LinkID: linkID}
	if rel != edge.Relationship {
		req.Relationship = &rel
	}
	if description != edge.Description {
		req.Description = &description
	}
	if req.Relationship == nil && req.Description == nil {
		return
	}
	if err := validation.ValidateUpdateLink(&req); err != nil {
		e.logger.Warn("rejected link update", logging.EdgeID(edge.ID), logging.Error(err))
		return
	}

	prevRel, prevDesc := edge.Relationship, edge.Description
	edge.Relationship, edge.Description = rel, description
	e.refreshVisible()

	e.dispatcher.Go(backend.OpUpdate, func(ctx context.Context) dispatch.Completion {
		start := time.Now()
		err := e.links.UpdateLink(ctx, req)
		e.cfg.metrics.RecordLinkRequest(backend.OpUpdate, time.Since(start), err)
		return func() {
			if err != nil {
				e.logger.Warn("link update failed, restoring",
					logging.Operation(backend.OpUpdate), logging.EdgeID(edge.ID), logging.Error(err))
				if edge.Relationship == rel && edge.Description == description {
					edge.Relationship, edge.Description = prevRel, prevDesc
					e.refreshVisible()
				}
				return
			}
			e.Refresh()
		}
	})
}

// DeleteLink hides edge and every exact duplicate at once, then deletes the
// confirmed ones on the backend. Optimistic edges with the same endpoints and
// relationship are dropped locally. A failed delete makes that edge visible
// again.
func (e *Engine) DeleteLink(edge *graph.Edge) {
	if e.closed {
		return
	}
	ids := overlay.Duplicates(e.visible, edge)
	if len(ids) == 0 {
		ids = []string{edge.ID}
	}
	e.overlay.RemoveMatching(edge.Source.ID, edge.Target.ID, edge.Relationship)

	var confirmed []int64
	confirmedIDs := make(map[int64]string, len(ids))
	for _, id := range ids {
		if graph.IsTempLinkID(id) {
			continue
		}
		e.overlay.Hide(id)
		linkID, err := graph.ParseLinkID(id)
		if err != nil {
			e.logger.Warn("cannot delete link", logging.EdgeID(id), logging.Error(err))
			continue
		}
		confirmed = append(confirmed, linkID)
		confirmedIDs[linkID] = id
	}
	e.refreshVisible()
	e.logger.Info("deleting link", logging.EdgeID(edge.ID), logging.Count(len(ids)))

	for _, linkID := range confirmed {
		id := confirmedIDs[linkID]
		e.dispatcher.Go(backend.OpDelete, func(ctx context.Context) dispatch.Completion {
			start := time.Now()
			err := e.links.DeleteLink(ctx, linkID)
			if errors.Is(err, backend.ErrLinkNotFound) {
				err = nil
			}
			e.cfg.metrics.RecordLinkRequest(backend.OpDelete, time.Since(start), err)
			return func() {
				if err != nil {
					e.logger.Warn("link delete failed, restoring",
						logging.Operation(backend.OpDelete), logging.EdgeID(id), logging.Error(err))
					e.overlay.Unhide(id)
					e.refreshVisible()
					return
				}
				e.Refresh()
			}
		})
	}
}
