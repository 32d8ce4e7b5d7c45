package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Outbound call commands",
}

var callTestCmd = &cobra.Command{
	Use:   "test [number]",
	Short: "Place a test call",
	Long: `Place a test call to the given number.

The call plays a short announcement instead of bridging the voice
agent, which verifies the telephony credentials and pipeline without
needing a public webhook.`,
	Args: cobra.ExactArgs(1),
	RunE: runCallTest,
}

func init() {
	callCmd.AddCommand(callTestCmd)
	rootCmd.AddCommand(callCmd)
}

func runCallTest(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	defer closeServices() //nolint:errcheck

	if callProvider == nil {
		return errors.New("call provider not configured")
	}
	if !callProvider.Configured() {
		return errors.New("telephony credentials missing or placeholders; set them in the config file or environment")
	}

	result, err := callProvider.TestCall(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("test call failed: %w", err)
	}

	cmd.Printf("Test call initiated: %s\n", result.CallID)
	return nil
}
