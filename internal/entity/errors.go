package entity

import "errors"

var (
	// ErrNotFound reports that no record exists for the requested kind and id.
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicateID reports a creation collision on (kind, id).
	ErrDuplicateID = errors.New("duplicate entity id")
)
