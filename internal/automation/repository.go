package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/earnest-s/slate-core/internal/infrastructure/database"
)

// Repository defines the interface for automation persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Automation CRUD
	GetByID(ctx context.Context, id string) (*Automation, error)
	GetBySlug(ctx context.Context, slug string) (*Automation, error)
	List(ctx context.Context) ([]Automation, error)
	Create(ctx context.Context, a *Automation) error
	Update(ctx context.Context, a *Automation) error
	Delete(ctx context.Context, id string) error

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, automationID string, limit int) ([]Execution, error)
}

// automationColumns is the SELECT column list for automation queries.
const automationColumns = `id, slug, name, description, enabled, trigger_json, steps_json, created_at, updated_at`

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, automation_id, trigger_kind, status, steps_total, steps_completed, steps_skipped, failure, started_at, finished_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves an automation by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAutomation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying automation by id: %w", err)
	}
	return a, nil
}

// GetBySlug retrieves an automation by its slug.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE slug = ?`

	row := r.db.QueryRowContext(ctx, query, slug)
	a, err := scanAutomation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying automation by slug: %w", err)
	}
	return a, nil
}

// List retrieves all automations ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning automation: %w", err)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// Create inserts a new automation.
func (r *SQLiteRepository) Create(ctx context.Context, a *Automation) error {
	triggerJSON, stepsJSON, err := marshalDefinition(a)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO automations (id, slug, name, description, enabled, trigger_json, steps_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Slug, a.Name, a.Description, boolToInt(a.Enabled),
		triggerJSON, stepsJSON,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrExists, a.ID)
		}
		return fmt.Errorf("creating automation: %w", err)
	}
	return nil
}

// Update persists changes to an existing automation.
func (r *SQLiteRepository) Update(ctx context.Context, a *Automation) error {
	triggerJSON, stepsJSON, err := marshalDefinition(a)
	if err != nil {
		return err
	}

	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE automations
		SET slug = ?, name = ?, description = ?, enabled = ?, trigger_json = ?, steps_json = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		a.Slug, a.Name, a.Description, boolToInt(a.Enabled),
		triggerJSON, stepsJSON,
		a.UpdatedAt.Format(time.RFC3339), a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an automation. Execution history cascades.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	failure, err := marshalFailure(exec.Failure)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_executions (id, automation_id, trigger_kind, status, steps_total, steps_completed, steps_skipped, failure, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID, exec.AutomationID, string(exec.TriggerKind), string(exec.Status),
		exec.StepsTotal, exec.StepsCompleted, exec.StepsSkipped, failure,
		exec.StartedAt.UTC().Format(time.RFC3339), timePtrString(exec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("creating execution: %w", err)
	}
	return nil
}

// UpdateExecution persists the final state of an execution.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	failure, err := marshalFailure(exec.Failure)
	if err != nil {
		return err
	}

	query := `
		UPDATE automation_executions
		SET status = ?, steps_completed = ?, steps_skipped = ?, failure = ?, finished_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(exec.Status), exec.StepsCompleted, exec.StepsSkipped, failure,
		timePtrString(exec.FinishedAt), exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}
	if affected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM automation_executions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	exec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions for an automation, newest
// first. A limit of 0 applies a default of 50.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, automationID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + executionColumns + `
		FROM automation_executions
		WHERE automation_id = ?
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, automationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// scanner abstracts sql.Row and sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

// scanAutomation reads one automation row.
func scanAutomation(row scanner) (*Automation, error) {
	var (
		a         Automation
		enabled   int
		trigger   string
		steps     string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&a.ID, &a.Slug, &a.Name, &a.Description, &enabled, &trigger, &steps, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(trigger), &a.Trigger); err != nil {
		return nil, fmt.Errorf("unmarshalling trigger: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &a.Steps); err != nil {
		return nil, fmt.Errorf("unmarshalling steps: %w", err)
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return &a, nil
}

// scanExecution reads one execution row.
func scanExecution(row scanner) (*Execution, error) {
	var (
		exec       Execution
		trigger    string
		status     string
		failure    sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&exec.ID, &exec.AutomationID, &trigger, &status,
		&exec.StepsTotal, &exec.StepsCompleted, &exec.StepsSkipped,
		&failure, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	exec.TriggerKind = TriggerKind(trigger)
	exec.Status = ExecutionStatus(status)

	if failure.Valid && failure.String != "" {
		var f StepFailure
		if err := json.Unmarshal([]byte(failure.String), &f); err != nil {
			return nil, fmt.Errorf("unmarshalling failure: %w", err)
		}
		exec.Failure = &f
	}

	exec.StartedAt, _ = time.Parse(time.RFC3339, startedAt) //nolint:errcheck // Format is controlled
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err == nil {
			exec.FinishedAt = &t
			duration := int(t.Sub(exec.StartedAt).Milliseconds())
			exec.DurationMS = &duration
		}
	}
	return &exec, nil
}

// marshalDefinition serializes an automation's trigger and steps.
func marshalDefinition(a *Automation) (trigger, steps string, err error) {
	triggerJSON, err := json.Marshal(a.Trigger)
	if err != nil {
		return "", "", fmt.Errorf("marshalling trigger: %w", err)
	}
	stepsJSON, err := json.Marshal(a.Steps)
	if err != nil {
		return "", "", fmt.Errorf("marshalling steps: %w", err)
	}
	return string(triggerJSON), string(stepsJSON), nil
}

// marshalFailure serializes a step failure, nil-safe.
func marshalFailure(f *StepFailure) (any, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshalling failure: %w", err)
	}
	return string(data), nil
}

// timePtrString formats an optional timestamp, nil-safe.
func timePtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// boolToInt converts a bool to SQLite's integer representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
