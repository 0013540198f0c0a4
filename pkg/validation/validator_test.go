package validation

import (
	"strings"
	"testing"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

func TestValidateRawNode(t *testing.T) {
	tests := []struct {
		name        string
		node        graph.RawNode
		expectError bool
		errorField  string
	}{
		{
			name: "Valid decision",
			node: graph.RawNode{ID: "decision-1", Type: graph.NodeDecision, Title: "Use Postgres"},
		},
		{
			name: "Valid progress with status",
			node: graph.RawNode{ID: "progress-2", Type: graph.NodeProgress, Status: graph.StatusDone},
		},
		{
			name:        "Missing id",
			node:        graph.RawNode{Type: graph.NodePattern},
			expectError: true,
			errorField:  "ID",
		},
		{
			name:        "Unknown type",
			node:        graph.RawNode{ID: "widget-1", Type: "widget"},
			expectError: true,
			errorField:  "Type",
		},
		{
			name:        "Unknown status",
			node:        graph.RawNode{ID: "progress-3", Type: graph.NodeProgress, Status: "BLOCKED"},
			expectError: true,
			errorField:  "Status",
		},
		{
			name:        "Status on non-progress node",
			node:        graph.RawNode{ID: "decision-4", Type: graph.NodeDecision, Status: graph.StatusTodo},
			expectError: true,
			errorField:  "Status",
		},
		{
			name:        "Title too long",
			node:        graph.RawNode{ID: "pattern-5", Type: graph.NodePattern, Title: strings.Repeat("x", MaxTitleLength+1)},
			expectError: true,
			errorField:  "Title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRawNode(&tt.node)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorField) {
					t.Errorf("Expected error mentioning %s, got %v", tt.errorField, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeSnapshot(t *testing.T) {
	in := graph.Snapshot{
		Nodes: []graph.RawNode{
			{ID: "decision-1", Type: graph.NodeDecision},
			{ID: "decision-1", Type: graph.NodeDecision},
			{ID: "", Type: graph.NodePattern},
			{ID: "pattern-2", Type: graph.NodePattern},
		},
		Edges: []graph.RawEdge{
			{ID: "link-1", Source: "decision-1", Target: "pattern-2", Relationship: graph.Implements},
			{ID: "link-2", Source: "decision-1", Target: "pattern-2"},
			{ID: "link-1", Source: "pattern-2", Target: "decision-1", Relationship: graph.Blocks},
		},
	}

	out, problems := SanitizeSnapshot(in)
	if len(out.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(out.Nodes))
	}
	if len(out.Edges) != 1 || out.Edges[0].Relationship != graph.Implements {
		t.Errorf("Expected only the first link, got %+v", out.Edges)
	}
	if len(problems) != 4 {
		t.Errorf("Expected 4 problems, got %d: %v", len(problems), problems)
	}
}

func TestValidateCreateLink(t *testing.T) {
	valid := graph.CreateLinkRequest{
		SourceType: graph.NodeDecision, SourceID: "1",
		TargetType: graph.NodeProgress, TargetID: "2",
		Relationship: graph.Tracks,
	}
	if err := ValidateCreateLink(&valid); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	self := valid
	self.TargetType, self.TargetID = graph.NodeDecision, "1"
	if err := ValidateCreateLink(&self); err == nil {
		t.Error("Expected self-link to be rejected")
	}

	noRel := valid
	noRel.Relationship = ""
	if err := ValidateCreateLink(&noRel); err == nil || !strings.Contains(err.Error(), "Relationship") {
		t.Errorf("Expected Relationship error, got %v", err)
	}

	if err := ValidateCreateLink(nil); err == nil {
		t.Error("Expected error for nil request")
	}
}

func TestValidateUpdateLink(t *testing.T) {
	rel := graph.Blocks
	desc := "because"
	empty := graph.RelationshipType("")

	tests := []struct {
		name        string
		req         graph.UpdateLinkRequest
		expectError bool
	}{
		{"relationship only", graph.UpdateLinkRequest{LinkID: 3, Relationship: &rel}, false},
		{"description only", graph.UpdateLinkRequest{LinkID: 3, Description: &desc}, false},
		{"both", graph.UpdateLinkRequest{LinkID: 3, Relationship: &rel, Description: &desc}, false},
		{"neither", graph.UpdateLinkRequest{LinkID: 3}, true},
		{"missing id", graph.UpdateLinkRequest{Relationship: &rel}, true},
		{"empty relationship", graph.UpdateLinkRequest{LinkID: 3, Relationship: &empty}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdateLink(&tt.req)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateUpdateLink() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}
