package domain

import "time"

// TransportState describes the lifecycle of one streaming connection.
// Transitions are strictly forward: Created → Connected → Streaming → Closed.
type TransportState int

// Transport lifecycle states.
const (
	TransportCreated TransportState = iota
	TransportConnected
	TransportStreaming
	TransportClosed
)

// String returns a human-readable state name.
func (s TransportState) String() string {
	switch s {
	case TransportCreated:
		return "created"
	case TransportConnected:
		return "connected"
	case TransportStreaming:
		return "streaming"
	case TransportClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session correlates one open streaming connection with the messages
// posted out-of-band against its identifier. The identifier is opaque
// to clients and never reused while the session is registered.
type Session struct {
	// ID is the opaque correlation token, generated when the transport
	// is constructed, before registration.
	ID string

	// CreatedAt is when the stream was opened.
	CreatedAt time.Time
}
