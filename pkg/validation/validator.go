package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxTitleLength bounds node titles accepted from snapshots.
	MaxTitleLength = 1000
)

func init() {
	validate = validator.New()
}

// ValidateRawNode validates a node from a fetched snapshot.
func ValidateRawNode(n *graph.RawNode) error {
	if n == nil {
		return errors.New("node cannot be nil")
	}
	if err := validate.Struct(n); err != nil {
		return formatValidationError(err)
	}
	if len(n.Title) > MaxTitleLength {
		return fmt.Errorf("Title: exceeds maximum length of %d characters", MaxTitleLength)
	}
	if n.Status != "" && n.Type != graph.NodeProgress {
		return fmt.Errorf("Status: only progress nodes carry a status, got type %s", n.Type)
	}
	return nil
}

// ValidateRawEdge validates an edge from a fetched snapshot.
func ValidateRawEdge(e *graph.RawEdge) error {
	if e == nil {
		return errors.New("edge cannot be nil")
	}
	if err := validate.Struct(e); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// SanitizeSnapshot returns a copy of s without invalid or duplicate elements.
// Malformed entries are treated as not currently representable, so they are
// reported back instead of failing the whole snapshot.
func SanitizeSnapshot(s graph.Snapshot) (graph.Snapshot, []error) {
	var problems []error
	out := graph.Snapshot{
		Nodes: make([]graph.RawNode, 0, len(s.Nodes)),
		Edges: make([]graph.RawEdge, 0, len(s.Edges)),
	}

	seenNodes := make(map[string]bool, len(s.Nodes))
	for i := range s.Nodes {
		n := s.Nodes[i]
		if err := ValidateRawNode(&n); err != nil {
			problems = append(problems, fmt.Errorf("node %d (%q): %w", i, n.ID, err))
			continue
		}
		if seenNodes[n.ID] {
			problems = append(problems, fmt.Errorf("node %d: duplicate id %q", i, n.ID))
			continue
		}
		seenNodes[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}

	seenEdges := make(map[string]bool, len(s.Edges))
	for i := range s.Edges {
		e := s.Edges[i]
		if err := ValidateRawEdge(&e); err != nil {
			problems = append(problems, fmt.Errorf("edge %d (%q): %w", i, e.ID, err))
			continue
		}
		if seenEdges[e.ID] {
			problems = append(problems, fmt.Errorf("edge %d: duplicate id %q", i, e.ID))
			continue
		}
		seenEdges[e.ID] = true
		out.Edges = append(out.Edges, e)
	}

	return out, problems
}

// ValidateCreateLink validates a link creation request.
func ValidateCreateLink(req *graph.CreateLinkRequest) error {
	if req == nil {
		return errors.New("create request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.SourceType == req.TargetType && req.SourceID == req.TargetID {
		return errors.New("Target: an item cannot be linked to itself")
	}
	return nil
}

// ValidateUpdateLink validates a link update request. At least one of relationship
// type or description must be provided.
func ValidateUpdateLink(req *graph.UpdateLinkRequest) error {
	if req == nil {
		return errors.New("update request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Relationship == nil && req.Description == nil {
		return errors.New("at least one of relationship_type or description must be provided")
	}
	if req.Relationship != nil && *req.Relationship == "" {
		return errors.New("RelationshipType: must not be empty")
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
