package domain

import "errors"

// Common domain errors.
var (
	// Entity errors
	ErrInvalidKind        = errors.New("invalid entity kind")
	ErrInvalidEntityValue = errors.New("invalid entity value")
	ErrNegativeDepth      = errors.New("depth cannot be negative")

	// Task errors
	ErrInvalidTransition = errors.New("invalid task state transition")

	// Run errors
	ErrNoModulesAvailable = errors.New("no modules available for entity kind")
	ErrRunCancelled       = errors.New("run was cancelled")
	ErrRunTimeout         = errors.New("run timeout exceeded")
	ErrAdmissionStopped   = errors.New("task admission stopped after repeated internal faults")
)
