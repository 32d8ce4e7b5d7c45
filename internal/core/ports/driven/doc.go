// Package driven defines the interfaces that core calls OUT to
// infrastructure: the telephony provider and the externally owned
// document stores.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// Import rules:
//   - Can import: domain package only
//   - Cannot import: any adapter package
package driven
