package driven

import (
	"context"
	"time"

	"github.com/amira-labs/amira-voice/internal/core/domain"
)

// CallTaskStore persists call tasks. The store is externally owned; the
// core relies only on per-record write atomicity, which is why the
// pending→calling edge is expressed as a compare-and-set rather than a
// read-modify-write.
type CallTaskStore interface {
	// Save stores a new task or overwrites an existing one.
	Save(ctx context.Context, task domain.CallTask) error

	// Get retrieves a task by ID. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.CallTask, error)

	// List returns all tasks.
	List(ctx context.Context) ([]domain.CallTask, error)

	// MarkCalling atomically moves a pending task to calling, recording
	// the phone number and call time. Returns domain.ErrAlreadyDispatched
	// if the task is no longer pending, domain.ErrNotFound if absent.
	MarkCalling(ctx context.Context, id, phoneNumber string, calledAt time.Time) error

	// AttachProviderCallID records the provider's call identifier.
	// Metadata-only: status is untouched. The ID is set at most once;
	// a second attach is rejected with domain.ErrInvalidTransition.
	AttachProviderCallID(ctx context.Context, id, providerCallID string) error

	// SetStatus moves a task to completed or failed, validating the
	// transition against the current status.
	SetStatus(ctx context.Context, id string, status domain.CallStatus) error

	// Delete removes a task record entirely.
	Delete(ctx context.Context, id string) error
}
