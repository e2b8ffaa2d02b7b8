package resource

import "errors"

var (
	// ErrNotPersisted is returned by operations that need a saved record
	ErrNotPersisted = errors.New("record is not persisted")

	// ErrUnknownAttribute is returned when reading a name that is neither an
	// accessor nor a loaded attribute
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrReadOnly is returned when setting an accessor without a setter
	ErrReadOnly = errors.New("read-only accessor")

	// ErrDuplicateType is returned when a type name is defined twice on a client
	ErrDuplicateType = errors.New("resource type already defined")

	// ErrUnexpectedPayload is returned when a response body has the wrong shape
	ErrUnexpectedPayload = errors.New("unexpected response payload")

	// ErrMissingPrefixParam is returned when a path prefix placeholder has no value
	ErrMissingPrefixParam = errors.New("missing prefix param")
)
