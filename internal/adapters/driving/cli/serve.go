package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amira-labs/amira-voice/internal/adapters/driven/config/file"
	"github.com/amira-labs/amira-voice/internal/adapters/driving/agent"
	"github.com/amira-labs/amira-voice/internal/adapters/driving/httpapi"
	"github.com/amira-labs/amira-voice/internal/core/services"
	"github.com/amira-labs/amira-voice/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the backend HTTP server.

It serves the agent streaming endpoint (GET /mcp/sse), the session
message router (POST /mcp/message), and the call-queue API. The server
runs until interrupted; SIGINT or SIGTERM triggers a graceful shutdown
that closes every live agent stream.

Credentials in the config file are watched: editing them applies
without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	defer closeServices() //nolint:errcheck

	cfg := configStore.Config()
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	registry := services.NewRegistry(
		services.WithIdleTTL(cfg.Session.IdleTTLOr(services.DefaultIdleTTL)),
		services.WithSweepInterval(cfg.Session.SweepIntervalOr(services.DefaultSweepInterval)),
	)

	agentServer, err := agent.NewServer(&agent.Ports{Leads: leadService})
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(registry, queueService, agentServer, callProvider)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go registry.Sweep(ctx)
	go func() {
		err := configStore.Watch(ctx, func(cfg file.Config) {
			callProvider.SetCredentials(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber)
			if dispatcher != nil {
				dispatcher.SetAgentCallbackURL(cfg.Agent.CallbackURL())
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("Config watch stopped: %v", err)
		}
	}()

	if !callProvider.Configured() {
		logger.Warn("Telephony credentials missing or placeholders; call dispatch will be refused")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "amira listening on %s\n", addr)
	return server.Run(ctx, addr)
}
