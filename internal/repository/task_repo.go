package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familytasks/internal/database"
	"familytasks/internal/models"
)

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db database.DBTX
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db database.DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *TaskRepository) WithTx(tx database.DBTX) *TaskRepository {
	return &TaskRepository{db: tx}
}

const taskColumns = "id, family_id, name, description, status, due_date, fee, is_suggested, COALESCE(created_by, ''), created_at"

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	var (
		status string
		due    sql.NullTime
		fee    sql.NullFloat64
	)
	err := row.Scan(&t.ID, &t.FamilyID, &t.Name, &t.Description, &status, &due, &fee, &t.IsSuggested, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.StatusOrDefault(status)
	t.DueDate = timePtr(due)
	t.Fee = floatPtr(fee)
	return t, nil
}

// CreateTask inserts a task
func (r *TaskRepository) CreateTask(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (id, family_id, name, description, status, due_date, fee, is_suggested, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.FamilyID, t.Name, t.Description, string(t.Status),
		nullTime(t.DueDate), nullFloat(t.Fee), t.IsSuggested, nullString(t.CreatedBy), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task by ID, or nil if none exists
func (r *TaskRepository) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// GetFamilyTasks lists a family's tasks newest first. An empty status
// returns every task.
func (r *TaskRepository) GetFamilyTasks(ctx context.Context, familyID string, status models.TaskStatus) ([]models.Task, error) {
	if status == "" {
		return r.list(ctx, "SELECT "+taskColumns+" FROM tasks WHERE family_id = ? ORDER BY created_at DESC", familyID)
	}
	return r.list(ctx, "SELECT "+taskColumns+" FROM tasks WHERE family_id = ? AND status = ? ORDER BY created_at DESC",
		familyID, string(status))
}

// ListTasks returns every task, oldest first
func (r *TaskRepository) ListTasks(ctx context.Context) ([]models.Task, error) {
	return r.list(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY created_at ASC")
}

// UpdateTask writes the editable fields of t
func (r *TaskRepository) UpdateTask(ctx context.Context, t *models.Task) error {
	query := `
		UPDATE tasks
		SET name = ?, description = ?, status = ?, due_date = ?, fee = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query, t.Name, t.Description, string(t.Status), nullTime(t.DueDate), nullFloat(t.Fee), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// UpdateTaskStatus sets only the status of a task
func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	_, err := r.db.ExecContext(ctx, "UPDATE tasks SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

// DeleteTask removes a task
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
