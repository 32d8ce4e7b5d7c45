// Package memory provides in-memory store implementations, used by
// tests and by demo mode where no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
)

// Ensure TaskStore implements the interface.
var _ driven.CallTaskStore = (*TaskStore)(nil)

// TaskStore is an in-memory implementation of driven.CallTaskStore.
// The mutex gives it the same per-record atomicity the core expects
// from the external document store.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.CallTask
}

// NewTaskStore creates a new in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]domain.CallTask),
	}
}

// Save stores a new task or overwrites an existing one.
func (s *TaskStore) Save(_ context.Context, task domain.CallTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

// Get retrieves a task by ID.
func (s *TaskStore) Get(_ context.Context, id string) (*domain.CallTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

// List returns all tasks.
func (s *TaskStore) List(_ context.Context) ([]domain.CallTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.CallTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		result = append(result, task)
	}
	return result, nil
}

// MarkCalling atomically claims the pending→calling edge.
func (s *TaskStore) MarkCalling(_ context.Context, id, phoneNumber string, calledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if task.Status != domain.CallPending {
		return domain.ErrAlreadyDispatched
	}

	task.Status = domain.CallCalling
	task.PhoneNumber = phoneNumber
	task.CalledAt = &calledAt
	s.tasks[id] = task
	return nil
}

// AttachProviderCallID records the provider's call identifier, once.
func (s *TaskStore) AttachProviderCallID(_ context.Context, id, providerCallID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if task.Status == domain.CallPending {
		return fmt.Errorf("%w: call id before dispatch", domain.ErrInvalidTransition)
	}
	if task.ProviderCallID != "" {
		return fmt.Errorf("%w: provider call id already set", domain.ErrInvalidTransition)
	}

	task.ProviderCallID = providerCallID
	s.tasks[id] = task
	return nil
}

// SetStatus moves a task forward through the lifecycle.
func (s *TaskStore) SetStatus(_ context.Context, id string, status domain.CallStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !task.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, task.Status, status)
	}

	task.Status = status
	s.tasks[id] = task
	return nil
}

// Delete removes a task record.
func (s *TaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}
