// Package cli implements the amira command-line interface using cobra.
// It is the composition root: commands build the config store, the
// SQLite store, the telephony provider, and the core services, then
// drive them.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/amira-labs/amira-voice/internal/adapters/driven/config/file"
	"github.com/amira-labs/amira-voice/internal/adapters/driven/storage/sqlite"
	"github.com/amira-labs/amira-voice/internal/adapters/driven/twilio"
	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
	"github.com/amira-labs/amira-voice/internal/core/services"
	"github.com/amira-labs/amira-voice/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var verbose bool

// Services wired by initServices. Package-level so tests can inject
// mocks, mirroring how commands nil-check their collaborators.
var (
	configStore  *file.Store
	dataStore    *sqlite.Store
	callProvider *twilio.Provider
	dispatcher   *services.Dispatcher
	queueService driving.CallQueueService
	leadService  driving.LeadService
)

var rootCmd = &cobra.Command{
	Use:   "amira",
	Short: "Outbound voice agent backend",
	Long: `Amira runs the backend for an outbound voice agent: a call queue
with a telephony provider behind it, a CRM tool surface for the agent,
and a streaming endpoint that bridges agent sessions over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices builds the full service graph from configuration. Safe
// to call more than once; already-wired services are kept, which is
// also what lets tests pre-inject mocks.
func initServices() error {
	if queueService != nil && leadService != nil {
		return nil
	}

	var err error
	if configStore == nil {
		configStore, err = file.NewStore("")
		if err != nil {
			return err
		}
	}
	cfg := configStore.Config()

	if dataStore == nil {
		dataStore, err = sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
	}

	if callProvider == nil {
		callProvider = twilio.NewProvider(twilio.Config{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.PhoneNumber,
		})
	}

	if queueService == nil {
		dispatcher = services.NewDispatcher(dataStore.TaskStore(), callProvider, cfg.Agent.CallbackURL())
		queueService = dispatcher
	}
	if leadService == nil {
		leadService = services.NewLeads(dataStore.LeadStore())
	}

	return nil
}

// closeServices releases resources held by initServices.
func closeServices() error {
	if dataStore == nil {
		return nil
	}
	err := dataStore.Close()
	dataStore = nil
	dispatcher = nil
	queueService = nil
	leadService = nil
	return err
}

// requireQueueService returns the queue service or an error for
// commands that cannot run without it.
func requireQueueService() (driving.CallQueueService, error) {
	if queueService == nil {
		return nil, errors.New("call queue service not configured")
	}
	return queueService, nil
}
