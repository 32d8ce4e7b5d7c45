package driving

import (
	"time"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

// Transport owns one session's streaming connection: its lifecycle and
// its inbound message-injection entry point. The SSE adapter implements
// this interface; the registry and router only see it.
type Transport interface {
	// SessionID returns the session identifier, generated at
	// construction time before the transport is registered.
	SessionID() string

	// State returns the current lifecycle state.
	State() domain.TransportState

	// HandleMessage injects an opaque payload into the outbound
	// protocol flow. Valid only while connected or streaming; after
	// close it returns domain.ErrSessionClosed. A handling failure
	// never tears down the stream.
	HandleMessage(payload []byte) error

	// LastActive returns the time of the last observed activity,
	// used by the registry's idle sweep.
	LastActive() time.Time

	// Close shuts the transport down. Idempotent; the close event
	// fires exactly once and triggers deregistration.
	Close() error
}

// SessionRegistry is the concurrency-safe mapping from session
// identifier to live transport. It is an injectable service owned by
// the composition root, initialised at process start and torn down at
// shutdown.
type SessionRegistry interface {
	// Register stores the transport under its session ID. A duplicate
	// registration overwrites the existing entry and logs a warning.
	Register(t Transport)

	// Lookup returns the transport for a session ID, if present.
	Lookup(sessionID string) (Transport, bool)

	// Remove deletes a session entry. Removing an absent key is a no-op.
	Remove(sessionID string)

	// Len returns the number of live sessions.
	Len() int

	// CloseAll closes and deregisters every live transport. Called at
	// process shutdown so streams and registry entries do not leak.
	CloseAll()
}
