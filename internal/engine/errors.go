package engine

import "errors"

var (
	// ErrNoSession is returned by operations that require an active session.
	ErrNoSession = errors.New("no active workout session")

	// ErrInvalidReference marks a mutation whose arguments do not identify a
	// valid target: an out-of-range exercise or set, an unknown field, a
	// missing type tag. This is a caller bug, not a user-facing condition; it
	// is never caught and retried so it surfaces loudly in testing.
	ErrInvalidReference = errors.New("invalid exercise or set reference")

	// ErrNothingToCommit is returned when a commit is attempted on a session
	// where every set is still blank. Local state is preserved so the user
	// can record data and retry.
	ErrNothingToCommit = errors.New("session has no recorded sets")
)
