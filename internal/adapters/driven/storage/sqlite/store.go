package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/amira-labs/amira-voice/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/amira-labs/amira-voice/internal/core/domain"
	"github.com/amira-labs/amira-voice/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// task and lead store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.amira/data/amira.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".amira", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "amira.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// TaskStore returns a CallTaskStore interface backed by this store.
func (s *Store) TaskStore() driven.CallTaskStore {
	return &taskStore{store: s}
}

// LeadStore returns a LeadStore interface backed by this store.
func (s *Store) LeadStore() driven.LeadStore {
	return &leadStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Call Task Store ====================

// taskStore implements driven.CallTaskStore.
type taskStore struct {
	store *Store
}

var _ driven.CallTaskStore = (*taskStore)(nil)

// Save stores a new task or overwrites an existing one.
func (s *taskStore) Save(ctx context.Context, task domain.CallTask) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO call_tasks
			(id, contact_email, contact_name, company, phone_number, status, called_at, provider_call_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contact_email = excluded.contact_email,
			contact_name = excluded.contact_name,
			company = excluded.company,
			phone_number = excluded.phone_number,
			status = excluded.status,
			called_at = excluded.called_at,
			provider_call_id = excluded.provider_call_id
	`, task.ID, task.ContactEmail, task.ContactName, task.Company, task.PhoneNumber,
		string(task.Status), nullTime(task.CalledAt), task.ProviderCallID, task.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID.
func (s *taskStore) Get(ctx context.Context, id string) (*domain.CallTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, contact_email, contact_name, company, phone_number, status, called_at, provider_call_id, created_at
		FROM call_tasks WHERE id = ?
	`, id)

	return scanTask(row)
}

// List returns all tasks, newest first.
func (s *taskStore) List(ctx context.Context) ([]domain.CallTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, contact_email, contact_name, company, phone_number, status, called_at, provider_call_id, created_at
		FROM call_tasks ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.CallTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}

	return tasks, nil
}

// MarkCalling atomically claims the pending→calling edge. The WHERE
// clause on the current status is what makes two concurrent dispatches
// resolve to one winner.
func (s *taskStore) MarkCalling(ctx context.Context, id, phoneNumber string, calledAt time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE call_tasks
		SET status = ?, phone_number = ?, called_at = ?
		WHERE id = ? AND status = ?
	`, string(domain.CallCalling), phoneNumber, calledAt, id, string(domain.CallPending))
	if err != nil {
		return fmt.Errorf("marking task calling: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyDispatched
	}
	return nil
}

// AttachProviderCallID records the provider's call identifier, once,
// only after the task has left pending. Status is untouched.
func (s *taskStore) AttachProviderCallID(ctx context.Context, id, providerCallID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE call_tasks
		SET provider_call_id = ?
		WHERE id = ? AND provider_call_id = '' AND status != ?
	`, providerCallID, id, string(domain.CallPending))
	if err != nil {
		return fmt.Errorf("attaching provider call id: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: provider call id already set or task not dispatched", domain.ErrInvalidTransition)
	}
	return nil
}

// SetStatus moves a task to completed or failed, enforcing the legal
// source states in the WHERE clause.
func (s *taskStore) SetStatus(ctx context.Context, id string, status domain.CallStatus) error {
	var res sql.Result
	var err error
	switch status {
	case domain.CallCompleted:
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE call_tasks SET status = ? WHERE id = ? AND status = ?
		`, string(status), id, string(domain.CallCalling))
	case domain.CallFailed:
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE call_tasks SET status = ? WHERE id = ? AND status IN (?, ?)
		`, string(status), id, string(domain.CallPending), string(domain.CallCalling))
	default:
		return fmt.Errorf("%w: cannot set status %s directly", domain.ErrInvalidTransition, status)
	}
	if err != nil {
		return fmt.Errorf("setting task status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: to %s", domain.ErrInvalidTransition, status)
	}
	return nil
}

// Delete removes a task record.
func (s *taskStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM call_tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// ==================== Lead Store ====================

// leadStore implements driven.LeadStore.
type leadStore struct {
	store *Store
}

var _ driven.LeadStore = (*leadStore)(nil)

// Get retrieves a lead by email.
func (s *leadStore) Get(ctx context.Context, email string) (*domain.Lead, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT email, name, company, status, score, interest_level, phone, notes, activity, updated_at
		FROM leads WHERE email = ?
	`, email)

	var lead domain.Lead
	var activityJSON string
	var updatedAt sql.NullTime
	if err := row.Scan(&lead.Email, &lead.Name, &lead.Company, &lead.Status, &lead.Score,
		&lead.InterestLevel, &lead.Phone, &lead.Notes, &activityJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning lead: %w", err)
	}

	if err := json.Unmarshal([]byte(activityJSON), &lead.Activity); err != nil {
		return nil, fmt.Errorf("unmarshaling activity: %w", err)
	}
	if updatedAt.Valid {
		lead.UpdatedAt = updatedAt.Time
	}

	return &lead, nil
}

// Save stores or updates a lead record.
func (s *leadStore) Save(ctx context.Context, lead domain.Lead) error {
	activityJSON, err := json.Marshal(lead.Activity)
	if err != nil {
		return fmt.Errorf("marshalling activity: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO leads (email, name, company, status, score, interest_level, phone, notes, activity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			company = excluded.company,
			status = excluded.status,
			score = excluded.score,
			interest_level = excluded.interest_level,
			phone = excluded.phone,
			notes = excluded.notes,
			activity = excluded.activity,
			updated_at = excluded.updated_at
	`, lead.Email, lead.Name, lead.Company, lead.Status, lead.Score,
		lead.InterestLevel, lead.Phone, lead.Notes, string(activityJSON), lead.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving lead: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// nullTime converts a *time.Time to a driver-friendly value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// scanTask scans a single task row.
func scanTask(row *sql.Row) (*domain.CallTask, error) {
	var task domain.CallTask
	var status string
	var calledAt sql.NullTime

	if err := row.Scan(&task.ID, &task.ContactEmail, &task.ContactName, &task.Company,
		&task.PhoneNumber, &status, &calledAt, &task.ProviderCallID, &task.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Status = domain.CallStatus(status)
	if calledAt.Valid {
		task.CalledAt = &calledAt.Time
	}

	return &task, nil
}

// scanTaskRows scans a task from *sql.Rows.
func scanTaskRows(rows *sql.Rows) (*domain.CallTask, error) {
	var task domain.CallTask
	var status string
	var calledAt sql.NullTime

	if err := rows.Scan(&task.ID, &task.ContactEmail, &task.ContactName, &task.Company,
		&task.PhoneNumber, &status, &calledAt, &task.ProviderCallID, &task.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Status = domain.CallStatus(status)
	if calledAt.Valid {
		task.CalledAt = &calledAt.Time
	}

	return &task, nil
}
