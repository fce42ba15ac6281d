package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familytasks/internal/database"
	"familytasks/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *FamilyRepository) WithTx(tx database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

const familyColumns = "id, surname, family_code, notify_email, created_at"

func scanFamily(row interface{ Scan(...any) error }) (*models.Family, error) {
	f := &models.Family{}
	err := row.Scan(&f.ID, &f.Surname, &f.FamilyCode, &f.Notifications.Email, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFamily inserts a family. A duplicate family code surfaces as the
// driver's unique-violation error.
func (r *FamilyRepository) CreateFamily(ctx context.Context, f *models.Family) error {
	query := "INSERT INTO families (" + familyColumns + ") VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, f.ID, f.Surname, f.FamilyCode, f.Notifications.Email, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

func (r *FamilyRepository) getOne(ctx context.Context, where string, arg any) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE " + where + " ORDER BY created_at ASC LIMIT 1"
	f, err := scanFamily(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return f, nil
}

// GetFamilyByID retrieves a family by ID, or nil if none exists
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, id string) (*models.Family, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetFamilyByCode retrieves a family by its join code, or nil if none exists
func (r *FamilyRepository) GetFamilyByCode(ctx context.Context, code string) (*models.Family, error) {
	return r.getOne(ctx, "family_code = ?", code)
}

// GetFamilyBySurname retrieves the oldest family with surname, or nil
func (r *FamilyRepository) GetFamilyBySurname(ctx context.Context, surname string) (*models.Family, error) {
	return r.getOne(ctx, "surname = ?", surname)
}

// CodeExists reports whether a family already uses code
func (r *FamilyRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families WHERE family_code = ?", code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check family code: %w", err)
	}
	return count > 0, nil
}

// UpdateFamilyCode replaces a family's join code
func (r *FamilyRepository) UpdateFamilyCode(ctx context.Context, id, code string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE families SET family_code = ? WHERE id = ?", code, id)
	if err != nil {
		return fmt.Errorf("failed to update family code: %w", err)
	}
	return nil
}

// UpdateNotifications stores a family's notification preferences
func (r *FamilyRepository) UpdateNotifications(ctx context.Context, id string, prefs models.NotificationPreferences) error {
	_, err := r.db.ExecContext(ctx, "UPDATE families SET notify_email = ? WHERE id = ?", prefs.Email, id)
	if err != nil {
		return fmt.Errorf("failed to update notifications: %w", err)
	}
	return nil
}

// ListFamilies returns every family, oldest first
func (r *FamilyRepository) ListFamilies(ctx context.Context) ([]models.Family, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+familyColumns+" FROM families ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// CountFamilies returns the number of families
func (r *FamilyRepository) CountFamilies(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count families: %w", err)
	}
	return count, nil
}
