package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
	"github.com/amira-labs/amira-voice/internal/logger"
)

// Ensure SSETransport satisfies both the core port and the SDK transport.
var (
	_ driving.Transport = (*SSETransport)(nil)
	_ mcp.Transport     = (*SSETransport)(nil)
	_ mcp.Connection    = (*SSETransport)(nil)
)

// incomingBuffer bounds how many posted messages may queue ahead of the
// protocol loop before posts start blocking.
const incomingBuffer = 16

// forwardTimeout caps how long a posted message may wait for buffer
// space when the protocol loop has stalled. The POST handler suspends
// at most this long.
const forwardTimeout = 5 * time.Second

// SSETransport owns one session's server-sent-event stream.
//
// Lifecycle: Created at construction, Connected once the stream headers
// and endpoint handshake are written, Streaming while the protocol loop
// runs, Closed exactly once on remote disconnect, idle sweep, or
// shutdown. The session identifier is generated here, before the
// transport is registered anywhere.
type SSETransport struct {
	sessionID   string
	messagePath string
	createdAt   time.Time

	mu         sync.Mutex
	state      domain.TransportState
	w          http.ResponseWriter
	flusher    http.Flusher
	lastActive time.Time
	onClose    func()

	incoming       chan jsonrpc.Message
	forwardTimeout time.Duration
	done           chan struct{}
	closeOnce      sync.Once
}

// NewSSETransport creates a transport with a freshly generated session
// identifier. messagePath is the relative URL clients POST payloads to;
// it is handed to the client in the endpoint handshake event.
func NewSSETransport(messagePath string) *SSETransport {
	now := time.Now()
	return &SSETransport{
		sessionID:      uuid.New().String(),
		messagePath:    messagePath,
		createdAt:      now,
		state:          domain.TransportCreated,
		lastActive:     now,
		incoming:       make(chan jsonrpc.Message, incomingBuffer),
		forwardTimeout: forwardTimeout,
		done:           make(chan struct{}),
	}
}

// SessionID returns the session identifier.
func (t *SSETransport) SessionID() string { return t.sessionID }

// State returns the current lifecycle state.
func (t *SSETransport) State() domain.TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastActive returns the time of the last message or write.
func (t *SSETransport) LastActive() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActive
}

// SetOnClose installs the hook fired exactly once when the transport
// closes. The composition root uses it to deregister the session; it is
// the only path that removes a registry entry.
func (t *SSETransport) SetOnClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClose = fn
}

// Open writes the event-stream headers and the endpoint handshake event
// carrying the message-post URL with the session identifier, then moves
// the transport to Connected. The identifier travels inside the stream,
// never in the HTTP response metadata.
func (t *SSETransport) Open(w http.ResponseWriter) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("sse: response writer does not support flushing")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TransportCreated {
		return fmt.Errorf("sse: open called in state %s", t.state)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", t.messagePath, t.sessionID)
	flusher.Flush()

	t.w = w
	t.flusher = flusher
	t.state = domain.TransportConnected
	t.lastActive = time.Now()
	return nil
}

// Connect implements mcp.Transport: the protocol server attaches to the
// already-open stream. Moves the transport to Streaming.
func (t *SSETransport) Connect(_ context.Context) (mcp.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TransportConnected {
		return nil, fmt.Errorf("sse: connect called in state %s", t.state)
	}
	t.state = domain.TransportStreaming
	return t, nil
}

// HandleMessage injects a payload posted out-of-band into the protocol
// flow. The payload is forwarded opaquely; only JSON-RPC framing is
// parsed, no schema validation happens here. After close this returns
// domain.ErrSessionClosed - a delegation failure never tears the
// stream down. If the protocol loop has stopped reading, the send gives
// up after forwardTimeout rather than parking the caller forever.
func (t *SSETransport) HandleMessage(payload []byte) error {
	t.mu.Lock()
	if t.state == domain.TransportClosed {
		t.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if t.state == domain.TransportCreated {
		t.mu.Unlock()
		return fmt.Errorf("sse: message before stream opened")
	}
	t.lastActive = time.Now()
	t.mu.Unlock()

	msg, err := jsonrpc.DecodeMessage(payload)
	if err != nil {
		return fmt.Errorf("%w: decoding message: %v", domain.ErrInvalidInput, err)
	}

	timer := time.NewTimer(t.forwardTimeout)
	defer timer.Stop()
	select {
	case t.incoming <- msg:
		return nil
	case <-t.done:
		return domain.ErrSessionClosed
	case <-timer.C:
		return fmt.Errorf("sse: forwarding timed out after %s", t.forwardTimeout)
	}
}

// Read implements mcp.Connection: the protocol server pulls injected
// messages from here.
func (t *SSETransport) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-t.incoming:
		return msg, nil
	case <-t.done:
		return nil, fmt.Errorf("sse: %w", domain.ErrSessionClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements mcp.Connection: protocol replies go out as message
// events on the stream. The reply to a posted payload arrives here
// asynchronously - never on the POST's own response.
func (t *SSETransport) Write(_ context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("sse: encoding message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != domain.TransportStreaming && t.state != domain.TransportConnected {
		return fmt.Errorf("sse: %w", domain.ErrSessionClosed)
	}

	if _, err := fmt.Fprintf(t.w, "event: message\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("sse: writing event: %w", err)
	}
	t.flusher.Flush()
	t.lastActive = time.Now()
	return nil
}

// Wait blocks until the transport closes or the request context ends
// (remote disconnect). On a remote disconnect it closes the transport,
// which fires the close hook.
func (t *SSETransport) Wait(ctx context.Context) {
	select {
	case <-t.done:
	case <-ctx.Done():
		_ = t.Close()
	}
}

// Close shuts the transport down. Idempotent; the close hook fires
// exactly once.
func (t *SSETransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.state = domain.TransportClosed
		onClose := t.onClose
		t.mu.Unlock()

		close(t.done)
		if onClose != nil {
			onClose()
		}
		logger.Info("sse: session %s closed", t.sessionID)
	})
	return nil
}
