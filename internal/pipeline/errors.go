package pipeline

import "errors"

var (
	// ErrPreconditionFailed marks a stage trigger arriving while the job is
	// not in the required predecessor state.
	ErrPreconditionFailed = errors.New("job is not in the required state")

	// ErrIllegalTransition marks an advance whose target is not a legal
	// successor of the record's status at mutation time.
	ErrIllegalTransition = errors.New("illegal status transition")
)
