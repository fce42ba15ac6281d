package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familytasks/internal/database"
	"familytasks/internal/models"
)

// SuggestedTaskRepository handles database operations for suggested tasks
type SuggestedTaskRepository struct {
	db database.DBTX
}

// NewSuggestedTaskRepository creates a new suggested task repository
func NewSuggestedTaskRepository(db database.DBTX) *SuggestedTaskRepository {
	return &SuggestedTaskRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *SuggestedTaskRepository) WithTx(tx database.DBTX) *SuggestedTaskRepository {
	return &SuggestedTaskRepository{db: tx}
}

const suggestedColumns = "id, name, description, estimated_cost, status, created_at"

func scanSuggested(row interface{ Scan(...any) error }) (*models.SuggestedTask, error) {
	s := &models.SuggestedTask{}
	var (
		cost   sql.NullFloat64
		status string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &cost, &status, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.EstimatedCost = floatPtr(cost)
	s.Status = models.StatusOrDefault(status)
	return s, nil
}

// CreateSuggestedTask inserts a suggested task
func (r *SuggestedTaskRepository) CreateSuggestedTask(ctx context.Context, s *models.SuggestedTask) error {
	query := "INSERT INTO suggested_tasks (" + suggestedColumns + ") VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.Description, nullFloat(s.EstimatedCost), string(s.Status), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create suggested task: %w", err)
	}
	return nil
}

// GetSuggestedTaskByID retrieves a suggested task, or nil if none exists
func (r *SuggestedTaskRepository) GetSuggestedTaskByID(ctx context.Context, id string) (*models.SuggestedTask, error) {
	s, err := scanSuggested(r.db.QueryRowContext(ctx, "SELECT "+suggestedColumns+" FROM suggested_tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggested task: %w", err)
	}
	return s, nil
}

// ListSuggestedTasks returns every suggested task in creation order
func (r *SuggestedTaskRepository) ListSuggestedTasks(ctx context.Context) ([]models.SuggestedTask, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+suggestedColumns+" FROM suggested_tasks ORDER BY created_at ASC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query suggested tasks: %w", err)
	}
	defer rows.Close()

	list := []models.SuggestedTask{}
	for rows.Next() {
		s, err := scanSuggested(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggested task: %w", err)
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// CountSuggestedTasks returns the number of suggested tasks
func (r *SuggestedTaskRepository) CountSuggestedTasks(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM suggested_tasks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count suggested tasks: %w", err)
	}
	return count, nil
}
