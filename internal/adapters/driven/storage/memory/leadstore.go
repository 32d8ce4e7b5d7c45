package memory

import (
	"context"
	"sync"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
)

// Ensure LeadStore implements the interface.
var _ driven.LeadStore = (*LeadStore)(nil)

// LeadStore is an in-memory implementation of driven.LeadStore.
type LeadStore struct {
	mu    sync.RWMutex
	leads map[string]domain.Lead
}

// NewLeadStore creates a new in-memory lead store.
func NewLeadStore() *LeadStore {
	return &LeadStore{
		leads: make(map[string]domain.Lead),
	}
}

// Get retrieves a lead by email.
func (s *LeadStore) Get(_ context.Context, email string) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &lead, nil
}

// Save stores or updates a lead record.
func (s *LeadStore) Save(_ context.Context, lead domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.Email] = lead
	return nil
}
