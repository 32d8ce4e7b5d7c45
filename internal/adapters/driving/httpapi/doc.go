// Package httpapi is the HTTP boundary of the Amira backend.
//
// It exposes three surfaces:
//
//   - GET  /mcp/sse       long-lived event stream carrying the agent protocol
//   - POST /mcp/message   out-of-band message injection, correlated by sessionId
//   - the call-queue endpoints (/queue, /call/dispatch, /call/test)
//
// The SSE transport implements both the core driving.Transport port and
// the MCP SDK's transport interfaces, so the agent server speaks
// directly over the stream while the router stays protocol-agnostic.
package httpapi
