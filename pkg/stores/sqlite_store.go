package stores

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

const memoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// Every connection to :memory: opens its own database.
	if cfg.Path == memoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database connection and applies connection pragmas.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.cfg.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if s.cfg.Path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateWorkflow creates a new workflow record
func (s *SQLiteStore) CreateWorkflow(ctx context.Context, wf *Workflow) error {
	now := time.Now().UTC()
	if wf.StartedAt.IsZero() {
		wf.StartedAt = now
	}
	if wf.Status == "" {
		wf.Status = WorkflowStatusRunning
	}
	wf.CreatedAt = now
	wf.UpdatedAt = now

	query := `
		INSERT INTO workflows (
			id, action, resource_type, identifier, status, error_code, message,
			invocations, request, result, started_at, completed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		wf.ID,
		wf.Action,
		wf.ResourceType,
		wf.Identifier,
		wf.Status,
		wf.ErrorCode,
		wf.Message,
		wf.Invocations,
		wf.Request,
		wf.Result,
		wf.StartedAt,
		wf.CompletedAt,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	return nil
}

const workflowColumns = `id, action, resource_type, identifier, status, error_code, message,
	invocations, request, result, started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*Workflow, error) {
	wf := &Workflow{}
	err := row.Scan(
		&wf.ID,
		&wf.Action,
		&wf.ResourceType,
		&wf.Identifier,
		&wf.Status,
		&wf.ErrorCode,
		&wf.Message,
		&wf.Invocations,
		&wf.Request,
		&wf.Result,
		&wf.StartedAt,
		&wf.CompletedAt,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	return wf, err
}

// GetWorkflow retrieves a workflow by ID
func (s *SQLiteStore) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = ?`

	wf, err := scanWorkflow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return wf, nil
}

// CompleteWorkflow records the terminal status of a workflow.
func (s *SQLiteStore) CompleteWorkflow(ctx context.Context, id string, status WorkflowStatus, errorCode, message, result *string) error {
	query := `
		UPDATE workflows
		SET status = ?, error_code = ?, message = ?, result = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	var completedAt *time.Time
	now := time.Now().UTC()
	if status.IsTerminal() {
		completedAt = &now
	}

	res, err := s.db.ExecContext(ctx, query, status, errorCode, message, result, completedAt, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete workflow: %w", err)
	}

	return expectOneRow(res, "workflow", id)
}

// ListWorkflows lists workflows, newest first, with optional filters.
func (s *SQLiteStore) ListWorkflows(ctx context.Context, filter WorkflowFilter, limit, offset int) ([]*Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE (? IS NULL OR action = ?)
		  AND (? IS NULL OR identifier = ?)
		  AND (? IS NULL OR status = ?)
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query,
		filter.Action, filter.Action,
		filter.Identifier, filter.Identifier,
		filter.Status, filter.Status,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []*Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// DeleteWorkflow deletes a workflow and, by cascade, its invocations and
// events.
func (s *SQLiteStore) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return expectOneRow(res, "workflow", id)
}

// RecordInvocation inserts an invocation and bumps the invocation count of
// its workflow in one transaction.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if inv.StartedAt.IsZero() {
		inv.StartedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invocations (
			id, workflow_id, attempt, status, error_code, message,
			callback_delay_seconds, callback_context, event, duration_ms, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.WorkflowID,
		inv.Attempt,
		inv.Status,
		inv.ErrorCode,
		inv.Message,
		inv.CallbackDelaySeconds,
		inv.CallbackContext,
		inv.Event,
		inv.DurationMs,
		inv.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE workflows SET invocations = invocations + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), inv.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if err := expectOneRow(res, "workflow", inv.WorkflowID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invocation: %w", err)
	}
	return nil
}

// ListInvocations lists the invocations of a workflow in attempt order.
func (s *SQLiteStore) ListInvocations(ctx context.Context, workflowID string) ([]*Invocation, error) {
	query := `
		SELECT id, workflow_id, attempt, status, error_code, message,
		       callback_delay_seconds, callback_context, event, duration_ms, started_at
		FROM invocations
		WHERE workflow_id = ?
		ORDER BY attempt ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	invocations := []*Invocation{}
	for rows.Next() {
		inv := &Invocation{}
		err := rows.Scan(
			&inv.ID,
			&inv.WorkflowID,
			&inv.Attempt,
			&inv.Status,
			&inv.ErrorCode,
			&inv.Message,
			&inv.CallbackDelaySeconds,
			&inv.CallbackContext,
			&inv.Event,
			&inv.DurationMs,
			&inv.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		invocations = append(invocations, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return invocations, nil
}

// AppendEvent appends a new event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO events (workflow_id, invocation_id, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.WorkflowID,
		event.InvocationID,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents retrieves events with optional filters and pagination
func (s *SQLiteStore) GetEvents(ctx context.Context, workflowID *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, workflow_id, invocation_id, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR workflow_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, workflowID, workflowID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.WorkflowID,
			&event.InvocationID,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// UpsertResourceState inserts or updates resource state. Hash and
// timestamps are filled in when empty.
func (s *SQLiteStore) UpsertResourceState(ctx context.Context, state *ResourceState) error {
	now := time.Now().UTC()
	if state.Hash == "" {
		state.Hash = HashState(state.State)
	}
	if state.LastApplied.IsZero() {
		state.LastApplied = now
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	query := `
		INSERT INTO resource_state (
			id, resource_type, identifier, state, hash, last_workflow_id, last_applied, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(resource_type, identifier) DO UPDATE SET
			state = excluded.state,
			hash = excluded.hash,
			last_workflow_id = excluded.last_workflow_id,
			last_applied = excluded.last_applied,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		state.ID,
		state.ResourceType,
		state.Identifier,
		state.State,
		state.Hash,
		state.LastWorkflowID,
		state.LastApplied,
		state.CreatedAt,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource state: %w", err)
	}

	return nil
}

const resourceStateColumns = `id, resource_type, identifier, state, hash, last_workflow_id, last_applied, created_at, updated_at`

func scanResourceState(row rowScanner) (*ResourceState, error) {
	state := &ResourceState{}
	err := row.Scan(
		&state.ID,
		&state.ResourceType,
		&state.Identifier,
		&state.State,
		&state.Hash,
		&state.LastWorkflowID,
		&state.LastApplied,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	return state, err
}

// GetResourceState retrieves resource state by type and identifier
func (s *SQLiteStore) GetResourceState(ctx context.Context, resourceType, identifier string) (*ResourceState, error) {
	query := `SELECT ` + resourceStateColumns + ` FROM resource_state WHERE resource_type = ? AND identifier = ?`

	state, err := scanResourceState(s.db.QueryRowContext(ctx, query, resourceType, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resource state %s/%s: %w", resourceType, identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource state: %w", err)
	}

	return state, nil
}

// ListResourceStates lists resource states with pagination
func (s *SQLiteStore) ListResourceStates(ctx context.Context, limit, offset int) ([]*ResourceState, error) {
	query := `
		SELECT ` + resourceStateColumns + `
		FROM resource_state
		ORDER BY resource_type, identifier
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource states: %w", err)
	}
	defer rows.Close()

	states := []*ResourceState{}
	for rows.Next() {
		state, err := scanResourceState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource state: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource states: %w", err)
	}

	return states, nil
}

// DeleteResourceState removes the state of a resource. Deleting an
// unknown resource is not an error.
func (s *SQLiteStore) DeleteResourceState(ctx context.Context, resourceType, identifier string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM resource_state WHERE resource_type = ? AND identifier = ?`,
		resourceType, identifier)
	if err != nil {
		return fmt.Errorf("failed to delete resource state: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

// HashState returns the SHA256 hex digest of a state blob.
func HashState(state string) string {
	sum := sha256.Sum256([]byte(state))
	return hex.EncodeToString(sum[:])
}

func expectOneRow(res sql.Result, kind, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
