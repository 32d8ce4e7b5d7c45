package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
)

// messagePath is the relative URL handed to streaming clients for
// out-of-band message posts.
const messagePath = "/mcp/message"

// AgentConnector runs the agent protocol server over one transport.
// Satisfied by the agent adapter; stubbed in tests.
type AgentConnector interface {
	Serve(ctx context.Context, t mcp.Transport) error
}

// TestCallProvider is the slice of the telephony provider the test-call
// endpoint needs: a credential check and a call with inline instructions.
type TestCallProvider interface {
	Configured() bool
	TestCall(ctx context.Context, to string) (*driven.CallResult, error)
}

// Server is the HTTP boundary: stream endpoint, message router, and the
// call-queue surface.
type Server struct {
	registry driving.SessionRegistry
	queue    driving.CallQueueService
	agent    AgentConnector
	provider TestCallProvider
}

// NewServer wires the HTTP boundary to its collaborators.
func NewServer(
	registry driving.SessionRegistry,
	queue driving.CallQueueService,
	agent AgentConnector,
	provider TestCallProvider,
) (*Server, error) {
	if registry == nil {
		return nil, errors.New("httpapi: session registry is required")
	}
	if queue == nil {
		return nil, errors.New("httpapi: call queue service is required")
	}
	if agent == nil {
		return nil, errors.New("httpapi: agent connector is required")
	}
	return &Server{
		registry: registry,
		queue:    queue,
		agent:    agent,
		provider: provider,
	}, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mcp/sse", s.handleSSE)
	mux.HandleFunc("POST "+messagePath, s.handleMessage)
	mux.HandleFunc("GET /queue", s.handleQueueList)
	mux.HandleFunc("POST /queue", s.handleQueueAdd)
	mux.HandleFunc("POST /queue/{id}/done", s.handleQueueDone)
	mux.HandleFunc("DELETE /queue/{id}", s.handleQueueDelete)
	mux.HandleFunc("POST /call/dispatch", s.handleCallDispatch)
	mux.HandleFunc("POST /call/test", s.handleCallTest)
	return mux
}

// Run serves HTTP on addr until the context is cancelled, then shuts
// down gracefully and closes every live streaming transport so no
// session entry or socket handle outlives the process.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
		s.registry.CloseAll()
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
