// Package agent exposes CRM tools to the conversational voice agent
// over the Model Context Protocol. Each live streaming session gets its
// own protocol connection; the tools are backed by the lead service.
package agent

import "errors"

// ErrMissingLeadService is returned when the lead service is not provided.
var ErrMissingLeadService = errors.New("agent: lead service is required")
