package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

var (
	queueAddEmail   string
	queueAddName    string
	queueAddCompany string
	queueAddPhone   string
	queueListJSON   bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Call queue commands",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List call tasks",
	RunE:  runQueueList,
}

var queueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contact to the call queue",
	RunE:  runQueueAdd,
}

func init() {
	queueListCmd.Flags().BoolVar(&queueListJSON, "json", false, "output tasks as JSON")
	queueAddCmd.Flags().StringVar(&queueAddEmail, "email", "", "contact email")
	queueAddCmd.Flags().StringVar(&queueAddName, "name", "", "contact name")
	queueAddCmd.Flags().StringVar(&queueAddCompany, "company", "", "contact company")
	queueAddCmd.Flags().StringVar(&queueAddPhone, "phone", "", "contact phone number")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAddCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	defer closeServices() //nolint:errcheck

	queue, err := requireQueueService()
	if err != nil {
		return err
	}

	tasks, err := queue.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	if queueListJSON {
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding tasks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(tasks) == 0 {
		cmd.Println("Queue is empty.")
		return nil
	}

	for i := range tasks {
		cmd.Println(formatTask(&tasks[i]))
	}
	return nil
}

func formatTask(task *domain.CallTask) string {
	name := task.ContactName
	if name == "" {
		name = task.ContactEmail
	}
	line := fmt.Sprintf("[%s] %s (%s)", task.Status, name, task.ID)
	if task.ProviderCallID != "" {
		line += " call=" + task.ProviderCallID
	}
	return line
}

func runQueueAdd(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}
	defer closeServices() //nolint:errcheck

	queue, err := requireQueueService()
	if err != nil {
		return err
	}

	task, err := queue.Enqueue(context.Background(), queueAddEmail, queueAddName, queueAddCompany, queueAddPhone)
	if err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}

	cmd.Printf("Task %s queued for %s\n", task.ID, task.ContactEmail)
	return nil
}
