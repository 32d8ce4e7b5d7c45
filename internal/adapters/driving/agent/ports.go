package agent

import (
	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the agent
// tool surface. A single injection point for dependency injection.
type Ports struct {
	// Leads provides CRM lookup and update.
	Leads driving.LeadService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Leads == nil {
		return ErrMissingLeadService
	}
	return nil
}
