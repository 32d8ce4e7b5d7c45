package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/logger"
)

// maxMessageBytes bounds a posted payload.
const maxMessageBytes = 1 << 20

// handleSSE opens a streaming session: construct the transport,
// register it, hand the stream to the agent protocol server, and hold
// the connection until the remote disconnects or the process shuts down.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	logger.Debug("sse: new stream request from %s", r.RemoteAddr)

	t := NewSSETransport(messagePath)
	t.SetOnClose(func() { s.registry.Remove(t.SessionID()) })

	if err := t.Open(w); err != nil {
		logger.Error("sse: opening stream: %v", err)
		http.Error(w, "Failed to initialize streaming connection.", http.StatusInternalServerError)
		return
	}

	s.registry.Register(t)
	logger.Info("sse: session %s established", t.SessionID())

	// The protocol server runs for exactly as long as this stream.
	agentCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := s.agent.Serve(agentCtx, t); err != nil {
			logger.Debug("sse: agent session %s ended: %v", t.SessionID(), err)
		}
		// Once the protocol loop is gone nothing reads posted messages;
		// close so the session deregisters instead of accepting into a
		// void.
		_ = t.Close()
	}()

	t.Wait(r.Context())
}

// handleMessage is the message router: it resolves the out-of-band
// session identifier to a live transport and forwards the opaque
// payload. The reply, if any, arrives over the stream - this response
// only acknowledges acceptance.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	// Validate before any registry access.
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		logger.Warn("router: message without sessionId")
		http.Error(w, "Missing sessionId.", http.StatusBadRequest)
		return
	}

	t, ok := s.registry.Lookup(sessionID)
	if !ok {
		logger.Warn("router: session %s not found or expired", sessionID)
		http.Error(w, "Session not found.", http.StatusNotFound)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "Failed to read payload.", http.StatusBadRequest)
		return
	}

	if err := t.HandleMessage(payload); err != nil {
		// A delegation failure is isolated to this request: the
		// session stays registered and the stream stays up.
		switch {
		case errors.Is(err, domain.ErrSessionClosed):
			http.Error(w, "Session closed.", http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidInput):
			http.Error(w, "Malformed payload.", http.StatusBadRequest)
		default:
			logger.Error("router: delegating to session %s: %v", sessionID, err)
			http.Error(w, "Internal server error processing message.", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("Accepted")) //nolint:errcheck
}

// --- Call queue surface ---

type enqueueRequest struct {
	ContactEmail string `json:"contactEmail"`
	ContactName  string `json:"contactName"`
	Company      string `json:"company"`
	PhoneNumber  string `json:"phoneNumber"`
}

type dispatchRequest struct {
	QueueID     string `json:"queueId"`
	PhoneNumber string `json:"phoneNumber"`
}

type callResponse struct {
	Success bool   `json:"success"`
	CallSid string `json:"callSid,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.queue.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	task, err := s.queue.Enqueue(r.Context(), req.ContactEmail, req.ContactName, req.Company, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleQueueDone(w http.ResponseWriter, r *http.Request) {
	task, err := s.queue.MarkDone(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleQueueDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.queue.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCallDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	task, err := s.queue.Dispatch(r.Context(), req.QueueID, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, callResponse{
		Success: true,
		CallSid: task.ProviderCallID,
		Message: "Call initiated to " + task.PhoneNumber,
	})
}

func (s *Server) handleCallTest(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil || !s.provider.Configured() {
		writeError(w, domain.ErrNotConfigured)
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
		writeError(w, domain.ErrInvalidInput)
		return
	}

	result, err := s.provider.TestCall(r.Context(), req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, callResponse{Success: true, CallSid: result.CallID})
}

// --- Response helpers ---

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError maps domain sentinels to status codes. Unexpected errors
// are logged in full server-side and returned as a generic message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAlreadyDispatched), errors.Is(err, domain.ErrTaskNotDeletable),
		errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Provider credentials not configured."})
	case errors.Is(err, domain.ErrProviderFailure):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		logger.Error("http: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error."})
	}
}
