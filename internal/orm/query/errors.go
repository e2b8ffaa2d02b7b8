package query

import "errors"

var (
	// ErrInvalidOrder is returned for an unrecognized order direction or order shape
	ErrInvalidOrder = errors.New("undefined sorting option")
)
