package engine

import (
	"github.com/dd0wney/cluso-graphview/pkg/geometry"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

// SetParameter changes one simulation parameter live and persists it.
func (e *Engine) SetParameter(name string, value float64) error {
	if e.closed {
		return ErrClosed
	}
	if err := e.sim.SetParameter(name, value); err != nil {
		return err
	}
	if err := e.parameters.Put(name, value); err != nil {
		e.logger.Warn("failed to record simulation parameter", logging.String("name", name), logging.Error(err))
	}
	e.dirty = true
	return nil
}

// ResetParameters restores the configured defaults and clears stored overrides.
func (e *Engine) ResetParameters() {
	if e.closed {
		return
	}
	for _, name := range graph.ParameterNames() {
		v, _ := e.cfg.params.Get(name)
		if err := e.sim.SetParameter(name, v); err != nil {
			e.logger.Warn("failed to reset simulation parameter", logging.String("name", name), logging.Error(err))
		}
	}
	e.parameters.Reset()
	e.dirty = true
}

// ResetLayout arranges the visible nodes on a circle, forgets every saved and
// cached position, resets the pan/zoom and restarts the simulation hot.
func (e *Engine) ResetLayout() {
	if e.closed {
		return
	}
	visualization.ArrangeCircle(e.nodes, e.width, e.height, ResetPadding)
	e.positions.Reset()
	e.reconciler.Forget()
	e.sim.Nudge(visualization.InitialAlpha)
	e.transform = geometry.Identity()
	e.logger.Info("layout reset", logging.Count(len(e.nodes)))
	e.dirty = true
}

// FlushPreferences writes pending preference changes immediately instead of
// waiting for the debounce delay.
func (e *Engine) FlushPreferences() {
	if e.closed {
		return
	}
	e.positions.Flush()
	e.parameters.Flush()
}
