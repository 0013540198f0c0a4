package interaction

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// ToggleLinkMode enters link creation, or leaves it when already active.
// Entering clears the node selection.
func (c *Controller) ToggleLinkMode() {
	if c.state.InLinkMode() {
		c.transition(Navigate)
		return
	}
	c.selected = ""
	c.click = lastClick{}
	c.transition(LinkAwaitingSource)
}

// ConfirmRelationship creates the link chosen in the picker and returns to
// LinkAwaitingSource for the next link.
func (c *Controller) ConfirmRelationship(rel graph.RelationshipType, description string) error {
	if c.state != LinkChoosingRelationship {
		return fmt.Errorf("confirm relationship in %s: %w", c.state, ErrWrongState)
	}
	rel = graph.RelationshipType(strings.TrimSpace(string(rel)))
	if rel == "" {
		return ErrEmptyRelationship
	}
	src, tgt := c.link.Source, c.link.Target
	c.logger.Info("link confirmed",
		logging.String("source", src.ID),
		logging.String("target", tgt.ID),
		logging.String("relationship", string(rel)))
	c.host.CreateLink(src, tgt, rel, strings.TrimSpace(description))
	c.link = LinkPayload{}
	c.transition(LinkAwaitingSource)
	return nil
}

// CancelPicker closes the relationship picker without creating a link.
func (c *Controller) CancelPicker() error {
	if c.state != LinkChoosingRelationship {
		return fmt.Errorf("cancel picker in %s: %w", c.state, ErrWrongState)
	}
	c.link = LinkPayload{}
	c.transition(LinkAwaitingSource)
	return nil
}

// ChooseEdge picks one entry of the multi-edge menu and opens the single
// edge menu for it.
func (c *Controller) ChooseEdge(id string) error {
	if c.state != EdgeMenuMulti {
		return fmt.Errorf("choose edge in %s: %w", c.state, ErrWrongState)
	}
	for _, e := range c.menu.Edges {
		if e.ID == id {
			menu := c.menu
			menu.Edge = e
			c.transition(EdgeMenuSingle)
			c.menu = menu
			return nil
		}
	}
	return fmt.Errorf("choose edge %q: %w", id, ErrUnknownEdge)
}

// SaveEdge commits a new relationship type and description for the edge in
// the single-edge menu.
func (c *Controller) SaveEdge(rel graph.RelationshipType, description string) error {
	if c.state != EdgeMenuSingle {
		return fmt.Errorf("save edge in %s: %w", c.state, ErrWrongState)
	}
	rel = graph.RelationshipType(strings.TrimSpace(string(rel)))
	if rel == "" {
		return ErrEmptyRelationship
	}
	c.host.UpdateLink(c.menu.Edge, rel, description)
	c.transition(Navigate)
	return nil
}

// DeleteEdge deletes the edge in the single-edge menu.
func (c *Controller) DeleteEdge() error {
	if c.state != EdgeMenuSingle {
		return fmt.Errorf("delete edge in %s: %w", c.state, ErrWrongState)
	}
	c.host.DeleteLink(c.menu.Edge)
	c.transition(Navigate)
	return nil
}

// DeleteEdges deletes the checked entries of the multi-edge menu. Unknown
// ids are an error and nothing is deleted.
func (c *Controller) DeleteEdges(ids ...string) error {
	if c.state != EdgeMenuMulti {
		return fmt.Errorf("delete edges in %s: %w", c.state, ErrWrongState)
	}
	byID := make(map[string]*graph.Edge, len(c.menu.Edges))
	for _, e := range c.menu.Edges {
		byID[e.ID] = e
	}
	targets := make([]*graph.Edge, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return fmt.Errorf("delete edge %q: %w", id, ErrUnknownEdge)
		}
		targets = append(targets, e)
	}
	for _, e := range targets {
		c.host.DeleteLink(e)
	}
	c.transition(Navigate)
	return nil
}

// CancelEdgeMenu closes any edge menu and discards pending edits.
func (c *Controller) CancelEdgeMenu() error {
	if !c.state.InEdgeMenu() {
		return fmt.Errorf("cancel edge menu in %s: %w", c.state, ErrWrongState)
	}
	c.transition(Navigate)
	return nil
}

// Escape backs out of the current state. In link mode it steps back toward
// LinkAwaitingSource, then leaves link mode. In Navigate it clears the
// selection.
func (c *Controller) Escape() {
	switch {
	case c.state == LinkAwaitingTarget || c.state == LinkChoosingRelationship:
		c.link = LinkPayload{}
		c.transition(LinkAwaitingSource)
	case c.state == LinkAwaitingSource || c.state.InEdgeMenu():
		c.transition(Navigate)
	case c.selected != "":
		c.selected = ""
		c.host.Redraw()
	}
}
