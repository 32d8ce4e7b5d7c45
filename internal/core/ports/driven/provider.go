package driven

import "context"

// CallRequest describes one outbound call to create.
type CallRequest struct {
	// To is the destination phone number.
	To string

	// CallbackURL is the voice webhook the provider fetches when the
	// call connects. For agent calls it embeds the agent identifier;
	// empty when Document is set instead.
	CallbackURL string

	// Document is inline call instructions (provider markup) used for
	// test calls where no webhook is reachable. Mutually exclusive
	// with CallbackURL.
	Document string
}

// CallResult is the provider's acknowledgment of a created call.
type CallResult struct {
	// CallID is the provider's opaque call identifier.
	CallID string
}

// CallProvider is the external telephony service that places outbound
// calls. The from-number is part of the provider's configuration.
type CallProvider interface {
	// Configured reports whether real credentials are present.
	// Placeholder values from a template config count as unconfigured.
	Configured() bool

	// CreateCall asks the provider to place a call. Blocking network
	// call; implementations carry a bounded timeout and return a
	// provider-supplied message wrapped in domain.ErrProviderFailure
	// on rejection.
	CreateCall(ctx context.Context, req CallRequest) (*CallResult, error)
}
