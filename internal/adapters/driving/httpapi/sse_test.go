package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

// noFlushWriter is a ResponseWriter without http.Flusher.
type noFlushWriter struct {
	header http.Header
}

func (w *noFlushWriter) Header() http.Header        { return w.header }
func (w *noFlushWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *noFlushWriter) WriteHeader(int)             {}

func pingPayload(id int) []byte {
	return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"ping"}`, id))
}

func TestNewSSETransport(t *testing.T) {
	tr := NewSSETransport("/mcp/message")

	assert.NotEmpty(t, tr.SessionID())
	assert.Equal(t, domain.TransportCreated, tr.State())
	assert.False(t, tr.LastActive().IsZero())

	// Identifiers are unique per transport.
	other := NewSSETransport("/mcp/message")
	assert.NotEqual(t, tr.SessionID(), other.SessionID())
}

func TestSSETransport_Open(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()

	require.NoError(t, tr.Open(rec))

	assert.Equal(t, domain.TransportConnected, tr.State())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))

	expected := fmt.Sprintf("event: endpoint\ndata: /mcp/message?sessionId=%s\n\n", tr.SessionID())
	assert.Equal(t, expected, rec.Body.String())
}

func TestSSETransport_OpenTwice(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()

	require.NoError(t, tr.Open(rec))
	err := tr.Open(rec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "open called in state")
}

func TestSSETransport_OpenWithoutFlusher(t *testing.T) {
	tr := NewSSETransport("/mcp/message")

	err := tr.Open(&noFlushWriter{header: http.Header{}})
	assert.Error(t, err)
	assert.Equal(t, domain.TransportCreated, tr.State())
}

func TestSSETransport_Connect(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))

	conn, err := tr.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TransportStreaming, tr.State())
	assert.Equal(t, tr.SessionID(), conn.SessionID())
}

func TestSSETransport_ConnectBeforeOpen(t *testing.T) {
	tr := NewSSETransport("/mcp/message")

	_, err := tr.Connect(context.Background())
	assert.Error(t, err)
}

func TestSSETransport_HandleMessageBeforeOpen(t *testing.T) {
	tr := NewSSETransport("/mcp/message")

	err := tr.HandleMessage(pingPayload(1))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "before stream opened")
}

func TestSSETransport_HandleMessageRoundTrip(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))
	_, err := tr.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, tr.HandleMessage(pingPayload(1)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := tr.Read(ctx)
	require.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestSSETransport_HandleMessageMalformed(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))

	err := tr.HandleMessage([]byte("not json"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSSETransport_HandleMessageAfterClose(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))
	require.NoError(t, tr.Close())

	err := tr.HandleMessage(pingPayload(1))
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSSETransport_HandleMessageFullBuffer(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	tr.forwardTimeout = 20 * time.Millisecond
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))

	// Nothing reads from the transport, so the buffer fills to capacity.
	for i := 0; i < incomingBuffer; i++ {
		require.NoError(t, tr.HandleMessage(pingPayload(i)))
	}

	err := tr.HandleMessage(pingPayload(incomingBuffer))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.NotEqual(t, domain.TransportClosed, tr.State())
}

func TestSSETransport_WriteFramesEvent(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))
	_, err := tr.Connect(context.Background())
	require.NoError(t, err)

	msg, err := jsonrpc.DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	require.NoError(t, err)

	require.NoError(t, tr.Write(context.Background(), msg))

	body := rec.Body.String()
	assert.Contains(t, body, "event: message\ndata: ")
	assert.Contains(t, body, `"jsonrpc":"2.0"`)
}

func TestSSETransport_WriteAfterClose(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))
	require.NoError(t, tr.Close())

	msg, err := jsonrpc.DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	require.NoError(t, err)

	err = tr.Write(context.Background(), msg)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSSETransport_ReadAfterClose(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))
	require.NoError(t, tr.Close())

	_, err := tr.Read(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSSETransport_CloseIdempotent(t *testing.T) {
	tr := NewSSETransport("/mcp/message")

	closed := 0
	tr.SetOnClose(func() { closed++ })

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	assert.Equal(t, domain.TransportClosed, tr.State())
	assert.Equal(t, 1, closed, "close hook fires exactly once")
}

func TestSSETransport_WaitOnContextCancel(t *testing.T) {
	tr := NewSSETransport("/mcp/message")
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Open(rec))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tr.Wait(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after context cancel")
	}
	assert.Equal(t, domain.TransportClosed, tr.State())
}

func TestSSETransport_WaitOnClose(t *testing.T) {
	tr := NewSSETransport("/mcp/message")

	done := make(chan struct{})
	go func() {
		tr.Wait(context.Background())
		close(done)
	}()

	require.NoError(t, tr.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Close")
	}
}
