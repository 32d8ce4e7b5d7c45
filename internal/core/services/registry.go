package services

import (
	"context"
	"sync"
	"time"

	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
	"github.com/amira-labs/amira-voice/internal/logger"
)

// Ensure Registry implements the interface.
var _ driving.SessionRegistry = (*Registry)(nil)

// Default sweep configuration.
const (
	// DefaultIdleTTL is how long a transport may sit without activity
	// before the sweep closes it. Covers abrupt disconnects that never
	// fire a close event.
	DefaultIdleTTL = 5 * time.Minute

	// DefaultSweepInterval is how often the janitor checks for idle sessions.
	DefaultSweepInterval = 30 * time.Second
)

// Registry is the in-process session routing table: a mutex-guarded map
// from session identifier to live transport. All operations are
// constant-time and never block on transport work; delegation happens
// outside the lock.
type Registry struct {
	idleTTL       time.Duration
	sweepInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]driving.Transport
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL overrides the idle expiry for the sweep.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = ttl }
}

// WithSweepInterval overrides how often the sweep runs.
func WithSweepInterval(interval time.Duration) RegistryOption {
	return func(r *Registry) { r.sweepInterval = interval }
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		idleTTL:       DefaultIdleTTL,
		sweepInterval: DefaultSweepInterval,
		sessions:      make(map[string]driving.Transport),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores the transport under its session ID.
// Duplicate registration is a protocol anomaly, not a fatal error: the
// previous entry is overwritten and a warning logged.
func (r *Registry) Register(t driving.Transport) {
	id := t.SessionID()

	r.mu.Lock()
	_, exists := r.sessions[id]
	r.sessions[id] = t
	r.mu.Unlock()

	if exists {
		logger.Warn("registry: session %s already registered, overwriting", id)
	}
	logger.Debug("registry: session %s registered (%d live)", id, r.Len())
}

// Lookup returns the transport for a session ID, if present.
func (r *Registry) Lookup(sessionID string) (driving.Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.sessions[sessionID]
	return t, ok
}

// Remove deletes a session entry. Idempotent.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	logger.Debug("registry: session %s removed", sessionID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes and deregisters every live transport.
// Called at process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	transports := make([]driving.Transport, 0, len(r.sessions))
	for _, t := range r.sessions {
		transports = append(transports, t)
	}
	r.sessions = make(map[string]driving.Transport)
	r.mu.Unlock()

	// Close outside the lock: a transport's close hook calls Remove.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			logger.Warn("registry: closing session %s: %v", t.SessionID(), err)
		}
	}
}

// Sweep starts the idle-expiry janitor and blocks until the context is
// cancelled. A transport idle for longer than the TTL is closed, which
// fires its close hook and removes its entry. Without this, a client
// that vanishes without a disconnect event would leak a registry entry
// and a stream handle forever.
func (r *Registry) Sweep(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepOnce()
		}
	}
}

// sweepOnce closes every transport idle past the TTL.
func (r *Registry) sweepOnce() {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.RLock()
	var stale []driving.Transport
	for _, t := range r.sessions {
		if t.LastActive().Before(cutoff) {
			stale = append(stale, t)
		}
	}
	r.mu.RUnlock()

	for _, t := range stale {
		logger.Warn("registry: session %s idle past %s, closing", t.SessionID(), r.idleTTL)
		if err := t.Close(); err != nil {
			logger.Warn("registry: closing idle session %s: %v", t.SessionID(), err)
		}
		// The close hook removes the entry; Remove here is a no-op
		// safety net for transports with no hook wired.
		r.Remove(t.SessionID())
	}
}
