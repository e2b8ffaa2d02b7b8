package schema

import "errors"

var (
	// ErrUnknownAttributeKind is returned when an attribute names a kind that is neither built in nor registered
	ErrUnknownAttributeKind = errors.New("unknown attribute kind")

	// ErrAlreadyDefinedMethod is returned when an accessor name is already taken on the owning type
	ErrAlreadyDefinedMethod = errors.New("attribute method already defined")

	// ErrInvalidValue is returned when a value cannot be coerced or is outside an enum's allowed values
	ErrInvalidValue = errors.New("invalid value")

	// ErrDuplicatedWireName is returned when two attributes of one bucket share a wire name
	ErrDuplicatedWireName = errors.New("duplicated wire name")

	// ErrReservedType is returned when a custom type tries to take a built-in name
	ErrReservedType = errors.New("type name is reserved")
)
