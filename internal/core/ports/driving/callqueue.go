package driving

import (
	"context"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

// CallQueueService drives an outbound call task through its lifecycle.
type CallQueueService interface {
	// Enqueue creates a new pending task for a contact.
	Enqueue(ctx context.Context, contactEmail, contactName, company, phoneNumber string) (*domain.CallTask, error)

	// Dispatch places the outbound call for a task: marks it calling,
	// asks the provider to create the call, and attaches the returned
	// provider call ID. Returns domain.ErrNotConfigured without any
	// state change when credentials are missing or placeholders, and
	// domain.ErrAlreadyDispatched when the task has left pending.
	Dispatch(ctx context.Context, taskID, phoneNumber string) (*domain.CallTask, error)

	// MarkDone moves a calling task to completed.
	MarkDone(ctx context.Context, taskID string) (*domain.CallTask, error)

	// Delete removes a completed or failed task entirely.
	Delete(ctx context.Context, taskID string) error

	// Get returns one task.
	Get(ctx context.Context, taskID string) (*domain.CallTask, error)

	// List returns all tasks in the queue.
	List(ctx context.Context) ([]domain.CallTask, error)
}
