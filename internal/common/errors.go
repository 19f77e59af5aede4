// Package common defines shared sentinel errors used across the notekeeper
// engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Credential errors.
	ErrBadCredential = errors.New("bad credential")

	// Gating errors (explicit guards, see the engine package).
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")

	// Flow-local validation errors; wrapped with the specific reason so the
	// caller can re-prompt the same step.
	ErrValidation = errors.New("validation error")

	// Persistence I/O failures. Surfaced per operation, never fatal for the
	// process.
	ErrStorage = errors.New("storage error")

	// Conversation errors.
	ErrNoActiveFlow = errors.New("no active conversation")

	// Owner-marker errors.
	ErrInvalidToken = errors.New("invalid token")
)
