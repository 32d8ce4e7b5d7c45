package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
	"github.com/amira-labs/amira-voice/internal/core/ports/driving"
	"github.com/amira-labs/amira-voice/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.CallQueueService = (*Dispatcher)(nil)

// Dispatcher drives outbound call tasks through their lifecycle:
// pending → calling → completed|failed, with delete for terminal tasks.
type Dispatcher struct {
	tasks    driven.CallTaskStore
	provider driven.CallProvider

	// agentCallbackURL is the voice webhook handed to the provider,
	// already parameterised with the agent identifier. Guarded so a
	// config reload can swap it while dispatches are in flight.
	mu               sync.RWMutex
	agentCallbackURL string
}

// NewDispatcher creates a call dispatcher.
func NewDispatcher(tasks driven.CallTaskStore, provider driven.CallProvider, agentCallbackURL string) *Dispatcher {
	return &Dispatcher{
		tasks:            tasks,
		provider:         provider,
		agentCallbackURL: agentCallbackURL,
	}
}

// SetAgentCallbackURL replaces the voice webhook used for subsequent
// dispatches. In-flight calls keep the URL they started with.
func (d *Dispatcher) SetAgentCallbackURL(callbackURL string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agentCallbackURL = callbackURL
}

func (d *Dispatcher) callbackURL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.agentCallbackURL
}

// Enqueue creates a new pending task for a contact.
func (d *Dispatcher) Enqueue(ctx context.Context, contactEmail, contactName, company, phoneNumber string) (*domain.CallTask, error) {
	task := domain.CallTask{
		ID:           uuid.New().String(),
		ContactEmail: contactEmail,
		ContactName:  contactName,
		Company:      company,
		PhoneNumber:  phoneNumber,
		Status:       domain.CallPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := d.tasks.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("saving task: %w", err)
	}
	return &task, nil
}

// Dispatch places the outbound call for a task.
//
// The task is marked calling before the provider confirms, so a
// concurrent observer of the queue sees the attempt in progress. The
// pending→calling edge is a compare-and-set in the store: of two
// near-simultaneous dispatches, exactly one reaches the provider and
// the other gets domain.ErrAlreadyDispatched. If the provider then
// fails, the task is compensated to failed rather than left stuck in
// calling.
func (d *Dispatcher) Dispatch(ctx context.Context, taskID, phoneNumber string) (*domain.CallTask, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: phone number is required", domain.ErrInvalidInput)
	}
	if !d.provider.Configured() {
		// Checked before any state change.
		return nil, domain.ErrNotConfigured
	}

	// Optimistic write: claim the pending→calling edge.
	calledAt := time.Now().UTC()
	if err := d.tasks.MarkCalling(ctx, taskID, phoneNumber, calledAt); err != nil {
		return nil, err
	}

	logger.Info("dispatch: task %s calling %s", taskID, phoneNumber)

	result, err := d.provider.CreateCall(ctx, driven.CallRequest{
		To:          phoneNumber,
		CallbackURL: d.callbackURL(),
	})
	if err != nil {
		// Compensate so the task is not stranded in calling with no
		// provider call behind it.
		if failErr := d.tasks.SetStatus(ctx, taskID, domain.CallFailed); failErr != nil {
			logger.Error("dispatch: marking task %s failed: %v", taskID, failErr)
		}
		return nil, fmt.Errorf("creating call for task %s: %w", taskID, err)
	}

	// Metadata-only update; the task is already calling.
	if err := d.tasks.AttachProviderCallID(ctx, taskID, result.CallID); err != nil {
		logger.Warn("dispatch: attaching call ID %s to task %s: %v", result.CallID, taskID, err)
	}

	task, err := d.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("reloading task: %w", err)
	}

	logger.Info("dispatch: task %s call created, provider call %s", taskID, result.CallID)
	return task, nil
}

// MarkDone moves a calling task to completed.
func (d *Dispatcher) MarkDone(ctx context.Context, taskID string) (*domain.CallTask, error) {
	if err := d.tasks.SetStatus(ctx, taskID, domain.CallCompleted); err != nil {
		return nil, err
	}
	return d.tasks.Get(ctx, taskID)
}

// Delete removes a completed or failed task entirely.
func (d *Dispatcher) Delete(ctx context.Context, taskID string) error {
	task, err := d.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.Status.Terminal() {
		return fmt.Errorf("%w: task %s is %s", domain.ErrTaskNotDeletable, taskID, task.Status)
	}
	return d.tasks.Delete(ctx, taskID)
}

// Get returns one task.
func (d *Dispatcher) Get(ctx context.Context, taskID string) (*domain.CallTask, error) {
	return d.tasks.Get(ctx, taskID)
}

// List returns all tasks in the queue.
func (d *Dispatcher) List(ctx context.Context) ([]domain.CallTask, error) {
	return d.tasks.List(ctx)
}

// Fail moves a task to failed. Exposed for compensating handlers that
// learn about a dead call out of band (e.g. a provider status webhook).
func (d *Dispatcher) Fail(ctx context.Context, taskID string) error {
	err := d.tasks.SetStatus(ctx, taskID, domain.CallFailed)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Already terminal; nothing to compensate.
		return nil
	}
	return err
}
