package driven

import (
	"context"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

// LeadStore persists lead records for the agent tool surface.
type LeadStore interface {
	// Get retrieves a lead by email. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, email string) (*domain.Lead, error)

	// Save stores or updates a lead record, including its activity history.
	Save(ctx context.Context, lead domain.Lead) error
}
