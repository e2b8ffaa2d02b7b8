package relationships

import "errors"

var (
	// ErrInvalidOptions is returned when an association is declared with options its macro does not accept
	ErrInvalidOptions = errors.New("invalid association options")

	// ErrUnknownRelationship is returned when a relationship is not found
	ErrUnknownRelationship = errors.New("unknown relationship")
)
