package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/amira-labs/amira-voice/internal/logger"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	Storage StorageConfig `toml:"storage"`
	Twilio  TwilioConfig  `toml:"twilio"`
	Agent   AgentConfig   `toml:"agent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default ":3000").
	Addr string `toml:"addr"`
}

// SessionConfig configures the session registry.
type SessionConfig struct {
	// IdleTTL is how long a silent stream may linger before the
	// sweeper closes it (default 5m).
	IdleTTL duration `toml:"idle_ttl"`

	// SweepInterval is how often the sweeper runs (default 30s).
	SweepInterval duration `toml:"sweep_interval"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	// DataDir is where the SQLite database lives (default ~/.amira/data).
	DataDir string `toml:"data_dir"`
}

// TwilioConfig holds telephony credentials.
type TwilioConfig struct {
	AccountSID  string `toml:"account_sid"`
	AuthToken   string `toml:"auth_token"`
	PhoneNumber string `toml:"phone_number"`
}

// AgentConfig configures the conversational agent integration.
type AgentConfig struct {
	// ID is the hosted voice agent identifier.
	ID string `toml:"id"`

	// WebhookBaseURL is the public base URL handed to the telephony
	// provider for agent call webhooks.
	WebhookBaseURL string `toml:"webhook_base_url"`
}

// CallbackURL composes the voice webhook handed to the telephony
// provider: the webhook base parameterised with the agent identifier,
// so the provider bridges the call to the right hosted agent.
func (c AgentConfig) CallbackURL() string {
	if c.WebhookBaseURL == "" || c.ID == "" {
		return c.WebhookBaseURL
	}
	u, err := url.Parse(c.WebhookBaseURL)
	if err != nil {
		return c.WebhookBaseURL
	}
	q := u.Query()
	q.Set("agent_id", c.ID)
	u.RawQuery = q.Encode()
	return u.String()
}

// duration wraps time.Duration for TOML string values like "5m".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration, or fallback when zero.
func (d duration) Std(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return time.Duration(d)
}

// IdleTTLOr returns the configured idle TTL or the given default.
func (c SessionConfig) IdleTTLOr(fallback time.Duration) time.Duration {
	return c.IdleTTL.Std(fallback)
}

// SweepIntervalOr returns the configured sweep interval or the given default.
func (c SessionConfig) SweepIntervalOr(fallback time.Duration) time.Duration {
	return c.SweepInterval.Std(fallback)
}

// Store loads configuration from a TOML file, applies environment
// overrides, and can watch the file for changes.
type Store struct {
	mu       sync.RWMutex
	filePath string
	cfg      Config
}

// NewStore creates a config store rooted at configDir.
// If configDir is empty, defaults to ~/.amira.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".amira")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &Store{
		filePath: filepath.Join(configDir, "config.toml"),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.filePath
}

// Config returns the current configuration snapshot.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Load reads the TOML file and applies environment overrides.
// A missing file is not an error; defaults and environment apply.
func (s *Store) Load() error {
	var cfg Config

	data, err := os.ReadFile(s.filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Save persists the current configuration to disk with restricted
// permissions; the file carries credentials.
func (s *Store) Save() error {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Watch reloads the configuration whenever the file changes and calls
// onChange with the fresh snapshot. It blocks until ctx is cancelled.
// Editors replace rather than rewrite files, so the watch is on the
// directory and filtered to our path.
func (s *Store) Watch(ctx context.Context, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.filePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Load(); err != nil {
				logger.Warn("Ignoring config change: %v", err)
				continue
			}
			logger.Info("Configuration reloaded from %s", s.filePath)
			if onChange != nil {
				onChange(s.Config())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

// applyDefaults fills zero values with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
}

// applyEnvOverrides lets environment variables take precedence over the
// file for credentials, matching how deployments inject secrets.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_PHONE_NUMBER"); v != "" {
		cfg.Twilio.PhoneNumber = v
	}
	if v := os.Getenv("ELEVENLABS_AGENT_ID"); v != "" {
		cfg.Agent.ID = v
	}
}
