package driving

import (
	"context"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

// LeadService provides the CRM operations exposed to the conversational
// agent: detail lookup and status/score updates.
type LeadService interface {
	// GetByEmail returns the lead record for an email address,
	// including activity history. Returns domain.ErrNotFound when no
	// record exists.
	GetByEmail(ctx context.Context, email string) (*domain.Lead, error)

	// Update applies a partial update and appends a status-change entry
	// to the activity history.
	Update(ctx context.Context, email string, update domain.LeadUpdate) (*domain.Lead, error)
}
