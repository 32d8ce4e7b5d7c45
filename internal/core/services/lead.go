package services

import (
	"context"
	"fmt"
	"time"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
)

// Ensure Leads implements the interface.
var _ driving.LeadService = (*Leads)(nil)

// Leads provides the CRM operations exposed to the agent tool surface.
type Leads struct {
	store driven.LeadStore
}

// NewLeads creates a lead service over a store.
func NewLeads(store driven.LeadStore) *Leads {
	return &Leads{store: store}
}

// GetByEmail returns the lead record for an email address.
func (l *Leads) GetByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	return l.store.Get(ctx, email)
}

// Update applies a partial update from the agent and records it in the
// lead's activity history.
func (l *Leads) Update(ctx context.Context, email string, update domain.LeadUpdate) (*domain.Lead, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if update.Score != nil && (*update.Score < 0 || *update.Score > 100) {
		return nil, fmt.Errorf("%w: score must be 0-100", domain.ErrInvalidInput)
	}

	lead, err := l.store.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if update.Status != nil {
		lead.Status = *update.Status
		lead.Activity = append([]domain.Activity{{
			OccurredAt:  now,
			Type:        "Status Update",
			Description: fmt.Sprintf("Lead moved to %s by the agent.", *update.Status),
		}}, lead.Activity...)
	}
	if update.Score != nil {
		lead.Score = *update.Score
	}
	if update.Note != nil && *update.Note != "" {
		lead.Activity = append([]domain.Activity{{
			OccurredAt:  now,
			Type:        "Note",
			Description: *update.Note,
		}}, lead.Activity...)
	}
	lead.UpdatedAt = now

	if err := l.store.Save(ctx, *lead); err != nil {
		return nil, fmt.Errorf("saving lead: %w", err)
	}
	return lead, nil
}
