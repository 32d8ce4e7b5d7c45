package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or missing input, such as an
	// absent session identifier or an empty phone number.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionClosed indicates a message was delivered to a transport
	// that has already closed. Non-fatal: the caller is told, the
	// process carries on.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotConfigured indicates provider credentials are missing or
	// still hold placeholder values. No state is mutated.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrAlreadyDispatched indicates a call task has already left the
	// pending state. Guards against two concurrent dispatches placing
	// two provider calls for one task.
	ErrAlreadyDispatched = errors.New("task already dispatched")

	// ErrProviderFailure indicates the telephony provider rejected or
	// failed a call-creation request after credentials validated.
	ErrProviderFailure = errors.New("provider call failed")

	// ErrTaskNotDeletable indicates a delete was attempted on a task
	// that is not yet completed or failed.
	ErrTaskNotDeletable = errors.New("task is not completed or failed")

	// ErrInvalidTransition indicates a call task status change that the
	// lifecycle state machine does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")
)
