package engine

import (
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/interaction"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/render"
)

// Drain applies finished background work on the calling goroutine.
func (e *Engine) Drain() int {
	if e.closed {
		return 0
	}
	return e.dispatcher.Drain()
}

// Ready is signalled when Drain has work to apply.
func (e *Engine) Ready() <-chan struct{} { return e.dispatcher.Ready() }

// Tick advances the simulation one step while it is active and expires stale
// optimistic edges. It reports whether positions changed.
func (e *Engine) Tick() bool {
	if e.closed {
		return false
	}
	e.expireOptimistic()
	if !e.sim.Active() {
		return false
	}
	e.sim.Tick()
	e.cfg.metrics.RecordTick(e.sim.Alpha())
	e.dirty = true
	return true
}

// Warmup runs up to n simulation steps without drawing and returns how many
// ran. Used before exporting a still image.
func (e *Engine) Warmup(n int) int {
	if e.closed {
		return 0
	}
	ran := e.sim.Warmup(n)
	e.cfg.metrics.RecordTick(e.sim.Alpha())
	e.dirty = true
	return ran
}

func (e *Engine) expireOptimistic() {
	expired := e.overlay.Expire(e.cfg.now())
	if len(expired) == 0 {
		return
	}
	for _, edge := range expired {
		e.logger.Warn("optimistic edge never confirmed, rolling back",
			logging.EdgeID(edge.ID),
			logging.String("edge", edge.Key().String()))
	}
	e.cfg.metrics.OptimisticExpiredTotal.Add(float64(len(expired)))
	e.refreshVisible()
}

// NeedsFrame reports whether the host should keep its animation loop running.
func (e *Engine) NeedsFrame() bool {
	if e.closed {
		return false
	}
	return e.dirty || e.sim.Active() || e.animating()
}

// animating is true while the link source halo pulses.
func (e *Engine) animating() bool {
	return e.ctrl.State() == interaction.LinkAwaitingTarget && e.ctrl.Link().Source != nil
}

// Scene assembles the current frame without drawing it.
func (e *Engine) Scene() render.Scene {
	ui := render.UIState{
		SelectedID:     e.ctrl.Selected(),
		LinkSourceID:   e.ctrl.LinkSourceID(),
		AwaitingTarget: e.ctrl.State() == interaction.LinkAwaitingTarget,
		SearchMatches:  e.matches,
		Now:            e.cfg.now(),
	}
	if e.focus.Enabled {
		ui.FocusCenterID = e.focus.CenterNodeID
	}
	return render.Scene{
		Nodes:     e.nodes,
		Edges:     e.visible,
		Transform: e.transform,
		UI:        ui,
	}
}

// Draw renders the current scene onto c. Ticks and UI changes both land here,
// so drawing twice without changes produces the same output.
func (e *Engine) Draw(c render.Canvas) {
	e.renderer.Draw(c, e.Scene())
	e.cfg.metrics.DrawsTotal.Inc()
	e.dirty = false
}

// Frame runs one iteration of the host loop: apply finished I/O, tick, and
// draw when something changed. It reports whether it drew.
func (e *Engine) Frame(c render.Canvas) bool {
	if e.closed {
		return false
	}
	e.Drain()
	e.Tick()
	if !e.dirty && !e.animating() {
		return false
	}
	e.Draw(c)
	return true
}

// SetSearch highlights nodes whose title or description contains query.
func (e *Engine) SetSearch(query string) {
	e.search = query
	e.matches = graph.MatchSearch(e.nodes, query)
	e.dirty = true
}

// Search returns the active search query and the number of matches.
func (e *Engine) Search() (string, int) { return e.search, len(e.matches) }

// HandlePointer forwards a pointer event to the controller.
func (e *Engine) HandlePointer(ev interaction.PointerEvent) {
	if e.closed {
		return
	}
	e.ctrl.HandlePointer(ev)
}

// HandleKey forwards a key to the controller.
func (e *Engine) HandleKey(k interaction.Key) {
	if e.closed {
		return
	}
	e.ctrl.HandleKey(k)
}
