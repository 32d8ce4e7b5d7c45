// Package domain contains the core types for the Amira voice backend:
// streaming sessions, the outbound call-task lifecycle, and the lead
// records exposed to the conversational agent.
//
// Domain types have no dependencies on adapters or infrastructure.
package domain
