package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources (asset rows, objects).
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
