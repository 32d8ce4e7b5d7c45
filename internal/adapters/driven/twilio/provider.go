// Package twilio provides a CallProvider adapter using the Twilio
// Programmable Voice API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.CallProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.twilio.com"
	DefaultTimeout = 30 * time.Second

	// DefaultCallsPerSecond matches Twilio's default outbound CPS limit.
	DefaultCallsPerSecond = 1

	// apiVersion is the Twilio REST API version path segment.
	apiVersion = "2010-04-01"

	// placeholderMarker flags credentials copied from a config template
	// that were never filled in.
	placeholderMarker = "your_twilio_"
)

// testAnnouncement is the inline voice document used for test calls,
// where no public webhook is reachable. It proves the telephony
// pipeline and credentials without bridging the agent.
const testAnnouncement = `<Response><Say voice="Polly.Matthew-Neural">Hello! Your Amira voice agent is successfully connected. The telephony pipeline is active and your credentials are valid.</Say></Response>`

// Config holds configuration for the Twilio provider.
type Config struct {
	// AccountSID is the Twilio account identifier (required).
	AccountSID string

	// AuthToken is the API auth token (required).
	AuthToken string

	// FromNumber is the pre-configured outbound caller number (required).
	FromNumber string

	// BaseURL is the API base URL (default: https://api.twilio.com).
	BaseURL string

	// Timeout bounds each call-creation request (default: 30s).
	Timeout time.Duration

	// CallsPerSecond throttles call creation (default: 1).
	CallsPerSecond float64
}

// Provider places outbound calls through the Twilio REST API.
// Credentials can be swapped at runtime when the config file changes.
type Provider struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter

	mu         sync.RWMutex
	accountSID string
	authToken  string
	fromNumber string
}

// callResponse is the Twilio call-creation response format.
type callResponse struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

// apiError is the Twilio error response format.
type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// NewProvider creates a Twilio call provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CallsPerSecond == 0 {
		cfg.CallsPerSecond = DefaultCallsPerSecond
	}

	return &Provider{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		limiter:    rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1),
	}
}

// SetCredentials replaces the account credentials. In-flight calls keep
// the credentials they started with.
func (p *Provider) SetCredentials(accountSID, authToken, fromNumber string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountSID = accountSID
	p.authToken = authToken
	p.fromNumber = fromNumber
}

// credentials returns a consistent snapshot of the account credentials.
func (p *Provider) credentials() (accountSID, authToken, fromNumber string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accountSID, p.authToken, p.fromNumber
}

// Configured reports whether real credentials are present. Empty values
// and template placeholders both count as unconfigured.
func (p *Provider) Configured() bool {
	sid, token, from := p.credentials()
	if sid == "" || token == "" || from == "" {
		return false
	}
	return !strings.Contains(sid, placeholderMarker) &&
		!strings.Contains(token, placeholderMarker)
}

// CreateCall places an outbound call. The request is throttled to the
// configured calls-per-second and bounded by the client timeout; no
// lock is held while it is in flight.
func (p *Provider) CreateCall(ctx context.Context, req driven.CallRequest) (*driven.CallResult, error) {
	if !p.Configured() {
		return nil, domain.ErrNotConfigured
	}
	if req.To == "" {
		return nil, fmt.Errorf("%w: destination number is required", domain.ErrInvalidInput)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("twilio: waiting for rate limiter: %w", err)
	}

	sid, token, from := p.credentials()

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", from)
	switch {
	case req.Document != "":
		form.Set("Twiml", req.Document)
	case req.CallbackURL != "":
		form.Set("Url", req.CallbackURL)
	default:
		return nil, fmt.Errorf("%w: callback URL or document is required", domain.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/%s/Accounts/%s/Calls.json", p.baseURL, apiVersion, sid)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("twilio: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(sid, token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("twilio: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%w: %s (code %d)", domain.ErrProviderFailure, apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProviderFailure, resp.StatusCode, string(body))
	}

	var call callResponse
	if err := json.Unmarshal(body, &call); err != nil {
		return nil, fmt.Errorf("twilio: decoding response: %w", err)
	}
	if call.Sid == "" {
		return nil, fmt.Errorf("%w: no call sid returned", domain.ErrProviderFailure)
	}

	return &driven.CallResult{CallID: call.Sid}, nil
}

// TestCall places a call carrying an inline announcement instead of the
// agent webhook, to verify credentials and the telephony pipeline.
func (p *Provider) TestCall(ctx context.Context, to string) (*driven.CallResult, error) {
	return p.CreateCall(ctx, driven.CallRequest{
		To:       to,
		Document: testAnnouncement,
	})
}
