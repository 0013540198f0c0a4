package graph

// CreateLinkRequest asks the backend to create a relationship between two items.
type CreateLinkRequest struct {
	SourceType   NodeType         `json:"source_item_type" validate:"required,oneof=decision progress pattern custom_data"`
	SourceID     string           `json:"source_item_id" validate:"required"`
	TargetType   NodeType         `json:"target_item_type" validate:"required,oneof=decision progress pattern custom_data"`
	TargetID     string           `json:"target_item_id" validate:"required"`
	Relationship RelationshipType `json:"relationship_type" validate:"required,max=100"`
	Description  string           `json:"description,omitempty" validate:"max=2000"`
}

// CreatedLink is the backend's answer to a create request.
type CreatedLink struct {
	ID int64 `json:"id"`
}

// UpdateLinkRequest changes the relationship type and/or description of a link.
// At least one of the two must be set.
type UpdateLinkRequest struct {
	LinkID       int64             `json:"link_id" validate:"required,min=1"`
	Relationship *RelationshipType `json:"relationship_type,omitempty" validate:"omitempty,max=100"`
	Description  *string           `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// CreateLinkFor builds the create request for an edge between two working-set nodes.
func CreateLinkFor(source, target *Node, rel RelationshipType, description string) CreateLinkRequest {
	return CreateLinkRequest{
		SourceType:   source.Type,
		SourceID:     itemIDOf(source),
		TargetType:   target.Type,
		TargetID:     itemIDOf(target),
		Relationship: rel,
		Description:  description,
	}
}

func itemIDOf(n *Node) string {
	if n.ItemID != "" {
		return n.ItemID
	}
	if _, id, ok := SplitNodeID(n.ID); ok {
		return id
	}
	return n.ID
}
