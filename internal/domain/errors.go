package domain

import "errors"

var (
	// ErrValidation is returned for malformed input the caller can correct.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a category, question, or session is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is not legal in the session's current state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrConstraint is returned on a uniqueness or referential violation at the store.
	ErrConstraint = errors.New("constraint violation")
	// ErrRateLimited is returned when the throttle window is exhausted; recoverable by waiting.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrExternalService is returned when the remote capability is unavailable.
	ErrExternalService = errors.New("external service unavailable")
	// ErrConnectivity is returned when the store is unreachable; fatal for the current operation.
	ErrConnectivity = errors.New("store unreachable")
)
