package agent

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/logger"
)

// LeadDetailsInput is the input schema for the get_lead_details tool.
type LeadDetailsInput struct {
	Email string `json:"email" jsonschema:"the email address of the lead to look up"`
}

// LeadDetailsOutput is the output schema for the get_lead_details tool.
type LeadDetailsOutput struct {
	Name            string           `json:"name"`
	Company         string           `json:"company"`
	Status          string           `json:"status"`
	Score           int              `json:"score"`
	InterestLevel   string           `json:"interest_level"`
	Phone           string           `json:"phone,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	ActivityHistory []ActivityOutput `json:"activity_history"`
}

// ActivityOutput is one activity history entry.
type ActivityOutput struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// UpdateLeadInput is the input schema for the update_lead_status tool.
type UpdateLeadInput struct {
	Email  string  `json:"email" jsonschema:"the email address of the lead to update"`
	Status *string `json:"status,omitempty" jsonschema:"the new status (e.g. Qualified, Interested, Nurture)"`
	Score  *int    `json:"score,omitempty" jsonschema:"the new lead score (0-100)"`
	Note   *string `json:"note,omitempty" jsonschema:"an optional note to add to the activity history"`
}

// UpdateLeadOutput is the output schema for the update_lead_status tool.
type UpdateLeadOutput struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
	Status  string `json:"status,omitempty"`
	Score   int    `json:"score"`
	Message string `json:"message"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_lead_details",
		Description: "Lookup detailed CRM information for a specific contact by their " +
			"email address, including activity history and score.",
	}, s.handleGetLeadDetails)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_lead_status",
		Description: "Update the status or score of a lead in the CRM.",
	}, s.handleUpdateLeadStatus)
}

// handleGetLeadDetails handles the get_lead_details tool invocation.
func (s *Server) handleGetLeadDetails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LeadDetailsInput,
) (*mcp.CallToolResult, LeadDetailsOutput, error) {
	logger.Info("agent: lead details requested for %s", input.Email)

	lead, err := s.ports.Leads.GetByEmail(ctx, input.Email)
	if errors.Is(err, domain.ErrNotFound) {
		// Unknown contacts get an empty record rather than an error so
		// the agent can keep the conversation going.
		return nil, LeadDetailsOutput{
			Name:            "Unknown Contact",
			Company:         "Unknown",
			Status:          "Lead",
			InterestLevel:   "Low",
			Notes:           "No prior engagement found in the CRM.",
			ActivityHistory: []ActivityOutput{},
		}, nil
	}
	if err != nil {
		return nil, LeadDetailsOutput{}, err
	}

	output := LeadDetailsOutput{
		Name:            lead.Name,
		Company:         lead.Company,
		Status:          lead.Status,
		Score:           lead.Score,
		InterestLevel:   lead.InterestLevel,
		Phone:           lead.Phone,
		Notes:           lead.Notes,
		ActivityHistory: make([]ActivityOutput, len(lead.Activity)),
	}
	for i := range lead.Activity {
		output.ActivityHistory[i] = ActivityOutput{
			Date:        lead.Activity[i].OccurredAt.Format(time.RFC3339),
			Type:        lead.Activity[i].Type,
			Description: lead.Activity[i].Description,
		}
	}

	return nil, output, nil
}

// handleUpdateLeadStatus handles the update_lead_status tool invocation.
func (s *Server) handleUpdateLeadStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateLeadInput,
) (*mcp.CallToolResult, UpdateLeadOutput, error) {
	logger.Info("agent: updating lead %s", input.Email)

	lead, err := s.ports.Leads.Update(ctx, input.Email, domain.LeadUpdate{
		Status: input.Status,
		Score:  input.Score,
		Note:   input.Note,
	})
	if err != nil {
		return nil, UpdateLeadOutput{}, err
	}

	return nil, UpdateLeadOutput{
		Success: true,
		Email:   lead.Email,
		Status:  lead.Status,
		Score:   lead.Score,
		Message: "Lead " + lead.Email + " successfully updated.",
	}, nil
}
