package state

import "errors"

var (
	// ErrDuplicateID is returned when an element id is already on the board.
	ErrDuplicateID = errors.New("state: duplicate element id")
	// ErrNotFound is returned when no element or board has the given id.
	ErrNotFound = errors.New("state: not found")
	// ErrGroupCycle is returned when a parent assignment would make a group
	// contain itself, directly or through other groups.
	ErrGroupCycle = errors.New("state: group cannot contain itself")
	// ErrInvalidElement is returned when an element breaks a data model
	// invariant (payload mismatch, empty path, negative radius).
	ErrInvalidElement = errors.New("state: invalid element")
	// ErrNoActiveBoard is returned by workspace operations that need an
	// active board when none exists.
	ErrNoActiveBoard = errors.New("state: no active board")
)
