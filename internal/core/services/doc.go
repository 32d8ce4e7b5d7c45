// Package services implements the driving port interfaces.
// Services contain the core business logic - the session routing table
// and the call-task lifecycle - and orchestrate calls to driven ports.
//
// Services are pure Go with no protocol or storage dependencies.
package services
