package recovery

import "errors"

var (
	// ErrActionTimeout means a recovery action exceeded its declared bound.
	ErrActionTimeout = errors.New("recovery action timed out")
	// ErrActionFailed means the action ran but the post-action health check
	// still reported an unhealthy instrument.
	ErrActionFailed = errors.New("instrument still unhealthy after recovery action")
	// ErrManualInterventionRequired is carried by the terminal ladder level.
	ErrManualInterventionRequired = errors.New("manual intervention required")
	// ErrExhausted means every automatic level was tried without success.
	ErrExhausted = errors.New("all recovery levels exhausted")
)
