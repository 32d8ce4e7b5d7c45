package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
	"github.com/amira-labs/amira-voice/internal/core/services"
)

// stubAgent connects to the transport and drains messages, reporting
// what it saw on channels.
type stubAgent struct {
	sessions chan string
	reads    chan jsonrpc.Message
}

func newStubAgent() *stubAgent {
	return &stubAgent{
		sessions: make(chan string, 4),
		reads:    make(chan jsonrpc.Message, 16),
	}
}

func (a *stubAgent) Serve(ctx context.Context, t mcp.Transport) error {
	conn, err := t.Connect(ctx)
	if err != nil {
		return err
	}
	a.sessions <- conn.SessionID()
	for {
		msg, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		a.reads <- msg
	}
}

// mockQueue implements driving.CallQueueService.
type mockQueue struct {
	tasks []domain.CallTask
	task  *domain.CallTask
	err   error
}

func (m *mockQueue) Enqueue(_ context.Context, contactEmail, contactName, company, phoneNumber string) (*domain.CallTask, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CallTask{
		ID:           "task-1",
		ContactEmail: contactEmail,
		ContactName:  contactName,
		Company:      company,
		PhoneNumber:  phoneNumber,
		Status:       domain.CallPending,
	}, nil
}

func (m *mockQueue) Dispatch(_ context.Context, _, _ string) (*domain.CallTask, error) {
	return m.task, m.err
}

func (m *mockQueue) MarkDone(_ context.Context, _ string) (*domain.CallTask, error) {
	return m.task, m.err
}

func (m *mockQueue) Delete(_ context.Context, _ string) error { return m.err }

func (m *mockQueue) Get(_ context.Context, _ string) (*domain.CallTask, error) {
	return m.task, m.err
}

func (m *mockQueue) List(_ context.Context) ([]domain.CallTask, error) {
	return m.tasks, m.err
}

// stubTestProvider implements TestCallProvider.
type stubTestProvider struct {
	configured bool
	callID     string
	err        error
}

func (p *stubTestProvider) Configured() bool { return p.configured }

func (p *stubTestProvider) TestCall(_ context.Context, _ string) (*driven.CallResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &driven.CallResult{CallID: p.callID}, nil
}

func newTestServer(t *testing.T, queue *mockQueue, provider TestCallProvider, agent AgentConnector) (*Server, *services.Registry) {
	t.Helper()
	registry := services.NewRegistry()
	if agent == nil {
		agent = newStubAgent()
	}
	server, err := NewServer(registry, queue, agent, provider)
	require.NoError(t, err)
	return server, registry
}

func TestNewServer_Validation(t *testing.T) {
	registry := services.NewRegistry()

	_, err := NewServer(nil, &mockQueue{}, newStubAgent(), nil)
	assert.Error(t, err)

	_, err = NewServer(registry, nil, newStubAgent(), nil)
	assert.Error(t, err)

	_, err = NewServer(registry, &mockQueue{}, nil, nil)
	assert.Error(t, err)

	server, err := NewServer(registry, &mockQueue{}, newStubAgent(), nil)
	require.NoError(t, err)
	assert.NotNil(t, server)
}

func TestHandleMessage_MissingSessionID(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/mcp/message", bytes.NewReader(pingPayload(1)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing sessionId.")
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/mcp/message?sessionId=nope", bytes.NewReader(pingPayload(1)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session not found.")
}

func TestSSEFlow_MessageRouting(t *testing.T) {
	agent := newStubAgent()
	server, registry := newTestServer(t, &mockQueue{}, nil, agent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	streamReq := httptest.NewRequest(http.MethodGet, "/mcp/sse", nil).WithContext(ctx)
	streamRec := httptest.NewRecorder()

	streamDone := make(chan struct{})
	go func() {
		server.handleSSE(streamRec, streamReq)
		close(streamDone)
	}()

	var sessionID string
	select {
	case sessionID = <-agent.sessions:
	case <-time.After(2 * time.Second):
		t.Fatal("agent never attached to the stream")
	}
	assert.Equal(t, 1, registry.Len())

	// Post a payload out of band; the response only acknowledges.
	req := httptest.NewRequest(http.MethodPost, "/mcp/message?sessionId="+sessionID, bytes.NewReader(pingPayload(1)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Accepted", rec.Body.String())

	// The payload reaches the protocol loop exactly once.
	select {
	case <-agent.reads:
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached the protocol loop")
	}
	select {
	case <-agent.reads:
		t.Fatal("message delivered more than once")
	case <-time.After(100 * time.Millisecond):
	}

	// A malformed payload fails this request but leaves the session up.
	req = httptest.NewRequest(http.MethodPost, "/mcp/message?sessionId="+sessionID, bytes.NewReader([]byte("not json")))
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, registry.Len())

	// Remote disconnect: the session deregisters and later posts 404.
	cancel()
	select {
	case <-streamDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler never returned")
	}
	assert.Eventually(t, func() bool { return registry.Len() == 0 }, time.Second, 10*time.Millisecond)

	req = httptest.NewRequest(http.MethodPost, "/mcp/message?sessionId="+sessionID, bytes.NewReader(pingPayload(2)))
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The stream carried the endpoint handshake with the identifier.
	body := streamRec.Body.String()
	assert.Contains(t, body, "event: endpoint\n")
	assert.Contains(t, body, "/mcp/message?sessionId="+sessionID)
}

func TestHandleQueueList(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{
		tasks: []domain.CallTask{{ID: "task-1", Status: domain.CallPending}},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/queue", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var tasks []domain.CallTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-1", tasks[0].ID)
}

func TestHandleQueueAdd(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, nil, nil)

	body := `{"contactEmail":"sarah.chen@example.com","contactName":"Sarah Chen","phoneNumber":"+15550001111"}`
	req := httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var task domain.CallTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "sarah.chen@example.com", task.ContactEmail)
}

func TestHandleQueueAdd_MalformedBody(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQueueDone(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{
		task: &domain.CallTask{ID: "task-1", Status: domain.CallCompleted},
	}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/queue/task-1/done", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed"`)
}

func TestHandleQueueDelete(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/queue/task-1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleQueueDelete_NotTerminal(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{err: domain.ErrTaskNotDeletable}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/queue/task-1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleCallDispatch(t *testing.T) {
	calledAt := time.Now().UTC()
	server, _ := newTestServer(t, &mockQueue{
		task: &domain.CallTask{
			ID:             "task-1",
			PhoneNumber:    "+15550001111",
			Status:         domain.CallCalling,
			CalledAt:       &calledAt,
			ProviderCallID: "CA123",
		},
	}, nil, nil)

	body := `{"queueId":"task-1","phoneNumber":"+15550001111"}`
	req := httptest.NewRequest(http.MethodPost, "/call/dispatch", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp callResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "CA123", resp.CallSid)
	assert.Contains(t, resp.Message, "+15550001111")
}

func TestHandleCallDispatch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not configured", domain.ErrNotConfigured, http.StatusServiceUnavailable},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"already dispatched", domain.ErrAlreadyDispatched, http.StatusConflict},
		{"provider failure", domain.ErrProviderFailure, http.StatusBadGateway},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, &mockQueue{err: tt.err}, nil, nil)

			body := `{"queueId":"task-1","phoneNumber":"+15550001111"}`
			req := httptest.NewRequest(http.MethodPost, "/call/dispatch", bytes.NewReader([]byte(body)))
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandleCallTest_NotConfigured(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, &stubTestProvider{configured: false}, nil)

	body := `{"phoneNumber":"+15550001111"}`
	req := httptest.NewRequest(http.MethodPost, "/call/test", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleCallTest_Success(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, &stubTestProvider{configured: true, callID: "CA999"}, nil)

	body := `{"phoneNumber":"+15550001111"}`
	req := httptest.NewRequest(http.MethodPost, "/call/test", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp callResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "CA999", resp.CallSid)
}

func TestHandleCallTest_MissingNumber(t *testing.T) {
	server, _ := newTestServer(t, &mockQueue{}, &stubTestProvider{configured: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/call/test", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// failingAgent aborts the protocol session immediately.
type failingAgent struct{}

func (a *failingAgent) Serve(_ context.Context, _ mcp.Transport) error {
	return assert.AnError
}

func TestHandleSSE_AgentFailureClosesSession(t *testing.T) {
	server, registry := newTestServer(t, &mockQueue{}, nil, &failingAgent{})

	req := httptest.NewRequest(http.MethodGet, "/mcp/sse", nil)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		server.handleSSE(rec, req)
		close(done)
	}()

	// The dead protocol loop closes the transport, which unblocks the
	// stream handler and deregisters the session.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not return after the agent session died")
	}
	assert.Eventually(t, func() bool { return registry.Len() == 0 }, time.Second, 10*time.Millisecond)
}
