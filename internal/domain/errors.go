package domain

import "errors"

var (
	// ErrInvalidInput marks client input rejected before any upstream call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownRepository is returned when a conversation is addressed
	// before it was created. Correct callers select a repository first,
	// so on a write path this signals a defect, not a user mistake.
	ErrUnknownRepository = errors.New("unknown repository")
)
