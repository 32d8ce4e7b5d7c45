package domain

import "time"

// Lead is the CRM record exposed to the conversational agent through
// the tool surface. The full CRM (filtering, ranking, enrichment) is
// outside this core; only the fields the agent reads and writes live here.
type Lead struct {
	// Email identifies the lead.
	Email string `json:"email"`

	// Name is the contact's full name.
	Name string `json:"name"`

	// Company is the contact's company.
	Company string `json:"company"`

	// Status is the pipeline status (e.g. Lead, Interested, Qualified, Nurture).
	Status string `json:"status"`

	// Score is the lead score, 0-100.
	Score int `json:"score"`

	// InterestLevel is a coarse engagement label (Low, High, Hot).
	InterestLevel string `json:"interestLevel"`

	// Phone is the contact's phone number, if known.
	Phone string `json:"phone,omitempty"`

	// Notes holds free-form notes about the lead.
	Notes string `json:"notes,omitempty"`

	// Activity is the lead's activity history, newest first.
	Activity []Activity `json:"activity,omitempty"`

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Activity is one entry in a lead's activity history.
type Activity struct {
	// OccurredAt is when the activity happened.
	OccurredAt time.Time `json:"occurredAt"`

	// Type labels the activity (e.g. "Status Update", "Discovery Call").
	Type string `json:"type"`

	// Description is the human-readable summary.
	Description string `json:"description"`
}

// LeadUpdate describes a partial update applied by the agent.
// Nil fields are left untouched.
type LeadUpdate struct {
	// Status replaces the lead's pipeline status when non-nil.
	Status *string

	// Score replaces the lead score when non-nil. Must be 0-100.
	Score *int

	// Note, when non-nil, is appended to the activity history.
	Note *string
}
