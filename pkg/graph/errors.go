package graph

import "errors"

// Common sentinel errors
var (
	ErrInvalidSnapshot   = errors.New("invalid snapshot")
	ErrInvalidLinkID     = errors.New("invalid link id")
	ErrUnknownParameter  = errors.New("unknown simulation parameter")
	ErrParameterRange    = errors.New("simulation parameter out of range")
	ErrInvalidRawElement = errors.New("invalid snapshot element")
)
