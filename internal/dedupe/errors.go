package dedupe

import "errors"

var (
	// ErrNoSession aborts a scan before any state is retained: the library
	// could not be read for the current user at all.
	ErrNoSession = errors.New("library session unavailable")

	// ErrStaleTarget marks a queued action whose target record no longer
	// exists by execution time. It is counted, never thrown across the
	// workflow boundary.
	ErrStaleTarget = errors.New("target record no longer exists")

	// ErrInvalidState rejects an operation not valid in the workflow's
	// current state.
	ErrInvalidState = errors.New("operation not valid in current workflow state")
)
