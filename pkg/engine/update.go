package engine

import (
	"context"
	"slices"
	"time"

	"github.com/dd0wney/cluso-graphview/pkg/backend"
	"github.com/dd0wney/cluso-graphview/pkg/dispatch"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/prefs"
	"github.com/dd0wney/cluso-graphview/pkg/reconcile"
	"github.com/dd0wney/cluso-graphview/pkg/validation"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// LoadPreferences reads stored positions and parameter overrides. Failures are
// logged and the engine keeps its defaults; the returned error is only
// informational.
func (e *Engine) LoadPreferences(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}
	var firstErr error

	if _, err := e.positions.Load(ctx); err != nil {
		e.logger.Warn("failed to load node positions", logging.Key(prefs.KeyPositions), logging.Error(err))
		firstErr = err
	}

	values, err := e.parameters.Load(ctx)
	if err != nil {
		e.logger.Warn("failed to load simulation parameters", logging.Key(prefs.KeyParameters), logging.Error(err))
		if firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	params, problems := prefs.ApplyParameters(e.cfg.params, values)
	for _, p := range problems {
		e.logger.Warn("ignoring stored simulation parameter", logging.Error(p))
	}
	for _, name := range graph.ParameterNames() {
		v, _ := params.Get(name)
		if err := e.sim.SetParameter(name, v); err != nil {
			e.logger.Warn("failed to apply simulation parameter", logging.String("name", name), logging.Error(err))
		}
	}
	return firstErr
}

// Update reconciles a snapshot into the working set. It is the single entry
// point for new data: fetch completions and hosts that fetch themselves both
// end up here.
func (e *Engine) Update(snapshot graph.Snapshot, filters graph.Filters, focus graph.FocusMode) {
	if e.closed {
		return
	}
	start := time.Now()

	clean, problems := validation.SanitizeSnapshot(snapshot)
	for _, p := range problems {
		e.logger.Debug("dropping snapshot element", logging.Error(p))
	}

	if e.loaded && (!filters.Equal(e.filters) || !focus.Equal(e.focus)) {
		if e.overlay.Len() > 0 || e.overlay.HiddenLen() > 0 {
			e.logger.Debug("view changed, clearing overlay",
				logging.Int("optimistic", e.overlay.Len()),
				logging.Int("hidden", e.overlay.HiddenLen()))
		}
		e.overlay.Clear()
	}
	e.filters, e.focus = filters, focus

	res := e.reconciler.Reconcile(reconcile.Input{
		Snapshot:         clean,
		Filters:          filters,
		Focus:            focus,
		Width:            e.width,
		Height:           e.height,
		ClusterTightness: e.sim.Parameters().ClusterTightness,
		Saved:            e.positions.Values(),
	})
	e.nodes, e.confirmed = res.Nodes, res.Edges

	if n := e.overlay.Reconcile(e.confirmed); n > 0 {
		e.logger.Debug("optimistic edges confirmed", logging.Count(n))
	}
	if n := e.overlay.ConfirmDeletions(e.confirmed); n > 0 {
		e.logger.Debug("edge deletions confirmed", logging.Count(n))
	}
	e.overlay.Rebind(e.reconciler.Node)
	e.ctrl.Forget(func(id string) bool {
		_, ok := e.reconciler.Node(id)
		return ok
	})

	e.sim.SetNodes(e.nodes)
	e.refreshVisible()
	if e.search != "" {
		e.matches = graph.MatchSearch(e.nodes, e.search)
	}

	switch {
	case !e.loaded:
		e.loaded = true
	case res.NodeChurn() > 0 || res.EdgeChurn() > 0:
		e.sim.Nudge(visualization.AlphaForChurn(res.NodeChurn(), res.EdgeChurn()))
	}

	e.cfg.metrics.RecordReconcile(time.Since(start), len(e.nodes), len(e.visible), res.Entered, res.Exited)
	e.logger.Debug("snapshot reconciled",
		logging.Int("nodes", len(e.nodes)),
		logging.Int("edges", len(e.confirmed)),
		logging.Int("entered", res.Entered),
		logging.Int("exited", res.Exited),
		logging.Alpha(e.sim.Alpha()))
	e.dirty = true
}

// refreshVisible rebuilds the merged edge list after the confirmed set or the
// overlay changed.
func (e *Engine) refreshVisible() {
	e.visible = e.overlay.Merge(e.confirmed)
	e.sim.SetEdges(e.visible)
	e.cfg.metrics.UpdateOverlay(e.overlay.Len(), e.overlay.HiddenLen())
	e.dirty = true
}

// Refresh fetches a snapshot for the active filters and focus in the
// background. The result is applied by the next Drain. Overlapping calls
// collapse into one extra fetch.
func (e *Engine) Refresh() {
	if e.fetching {
		e.refetch = true
		return
	}
	e.fetch(e.filters, e.focus)
}

// SetFilters changes the filters and refetches.
func (e *Engine) SetFilters(f graph.Filters) {
	e.fetch(f, e.focus)
}

// SetFocus restricts the view to the neighbourhood of nodeID and refetches.
func (e *Engine) SetFocus(nodeID string, hops int) {
	if hops <= 0 {
		hops = e.cfg.hopDepth
	}
	e.fetch(e.filters, graph.FocusMode{Enabled: true, CenterNodeID: nodeID, HopDepth: hops})
}

// ClearFocus leaves focus mode and refetches.
func (e *Engine) ClearFocus() {
	if !e.focus.Enabled {
		return
	}
	e.fetch(e.filters, graph.FocusMode{})
}

type fetchResult struct {
	snap    graph.Snapshot
	filters graph.Filters
	focus   graph.FocusMode
}

func (e *Engine) fetch(filters graph.Filters, focus graph.FocusMode) {
	if e.closed {
		return
	}
	if e.fetching {
		e.refetch = true
		e.pendingView = &fetchResult{filters: filters, focus: focus}
		return
	}
	e.fetching = true

	req := fetchRequest(filters, focus, e.cfg.fetchLimit)
	ok := e.dispatcher.Go(backend.OpFetch, func(ctx context.Context) dispatch.Completion {
		snap, err := e.source.FetchSnapshot(ctx, req)
		e.cfg.metrics.RecordFetch(err)
		return func() { e.fetched(fetchResult{snap: snap, filters: filters, focus: focus}, err) }
	})
	if !ok {
		e.fetching = false
	}
}

func (e *Engine) fetched(res fetchResult, err error) {
	e.fetching = false
	if err != nil {
		e.logger.Warn("snapshot fetch failed, keeping current graph", logging.Operation(backend.OpFetch), logging.Error(err))
	} else {
		e.Update(res.snap, res.filters, res.focus)
	}

	if e.refetch {
		e.refetch = false
		next := e.pendingView
		e.pendingView = nil
		if next == nil {
			next = &fetchResult{filters: e.filters, focus: e.focus}
		}
		e.fetch(next.filters, next.focus)
	}
}

func fetchRequest(filters graph.Filters, focus graph.FocusMode, limit int) backend.FetchRequest {
	req := backend.FetchRequest{Limit: limit}
	for t := range filters.NodeTypes {
		req.NodeTypes = append(req.NodeTypes, t)
	}
	slices.Sort(req.NodeTypes)
	if focus.Enabled && focus.CenterNodeID != "" {
		req.Focus = &backend.FocusRequest{CenterNodeID: focus.CenterNodeID, HopDepth: focus.HopDepth}
	}
	return req
}
