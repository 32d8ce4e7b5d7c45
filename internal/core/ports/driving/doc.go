// Package driving defines interfaces that external actors (HTTP
// handlers, the agent adapter, CLI) use to interact with core services.
// These are the "driving" ports in hexagonal architecture terminology -
// they drive the application.
//
// Implementations of these interfaces live in internal/core/services,
// except Transport, whose implementation is the SSE adapter.
package driving
