// Package apperr defines the sentinel errors shared across service
// boundaries. Handlers map them to HTTP statuses with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrPatchFinal signals a status transition on an applied or rejected
	// patch; terminal patches never re-open.
	ErrPatchFinal = errors.New("patch already finalized")

	// ErrUnknownAction signals a patch action outside the closed action set.
	ErrUnknownAction = errors.New("unknown action")
)
