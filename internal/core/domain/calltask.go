package domain

import "time"

// CallStatus is the lifecycle status of an outbound call task.
type CallStatus string

// Call task statuses. Transitions are monotonic:
// pending → calling → completed|failed. Delete removes the record
// entirely and is not a status.
const (
	CallPending   CallStatus = "pending"
	CallCalling   CallStatus = "calling"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// CanTransition reports whether the lifecycle permits moving from s to next.
func (s CallStatus) CanTransition(next CallStatus) bool {
	switch s {
	case CallPending:
		return next == CallCalling || next == CallFailed
	case CallCalling:
		return next == CallCompleted || next == CallFailed
	default:
		return false
	}
}

// Terminal reports whether the status is an end state. Only terminal
// tasks may be deleted.
func (s CallStatus) Terminal() bool {
	return s == CallCompleted || s == CallFailed
}

// CallTask represents one queued outbound communication attempt.
// The record itself lives in an external store; this core only drives
// its lifecycle.
type CallTask struct {
	// ID is the unique task identifier.
	ID string `json:"id"`

	// ContactEmail references the lead the call is for.
	ContactEmail string `json:"contactEmail,omitempty"`

	// ContactName is a display name for the contact.
	ContactName string `json:"contactName,omitempty"`

	// Company is the contact's company, if known.
	Company string `json:"company,omitempty"`

	// PhoneNumber is the dialled number, recorded at dispatch time.
	PhoneNumber string `json:"phoneNumber,omitempty"`

	// Status is the current lifecycle status.
	Status CallStatus `json:"status"`

	// CalledAt is set when the task moves to calling.
	CalledAt *time.Time `json:"calledAt,omitempty"`

	// ProviderCallID is the provider's call identifier. Set at most
	// once, only after the task has reached calling.
	ProviderCallID string `json:"providerCallId,omitempty"`

	// CreatedAt is when the task was enqueued.
	CreatedAt time.Time `json:"createdAt"`
}
