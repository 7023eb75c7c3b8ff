package service

import "errors"

var (
	// ErrNotFound covers a missing asset, task, complaint or unit.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState covers lifecycle violations: a completed or
	// cancelled task, a complaint that is closed, already linked, or
	// has no unit to locate the work in.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation covers malformed input such as an empty description.
	ErrValidation = errors.New("validation failed")
)
