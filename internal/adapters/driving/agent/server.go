package agent

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is the tool-server version reported to agents.
const Version = "1.0.0"

// Server is the MCP server exposing backend tools to the voice agent.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates the agent tool server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "amira-backend-tools",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()

	return s, nil
}

// Serve runs one protocol session over the given transport.
// It blocks until the transport closes or the context is cancelled, so
// callers run it alongside the stream it serves.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}
