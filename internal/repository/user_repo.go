package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familytasks/internal/database"
	"familytasks/internal/models"
)

// UserRepository handles credentials, profiles and sessions
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx
func (r *UserRepository) WithTx(tx database.DBTX) *UserRepository {
	return &UserRepository{db: tx}
}

const credentialColumns = "id, email, password_hash, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at"

func scanCredential(row interface{ Scan(...any) error }) (*models.Credential, error) {
	c := &models.Credential{}
	if err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.OAuthProvider, &c.OAuthSubject, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCredential inserts a login identity
func (r *UserRepository) CreateCredential(ctx context.Context, c *models.Credential) error {
	query := `
		INSERT INTO credentials (id, email, password_hash, oauth_provider, oauth_subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Email, c.PasswordHash,
		nullString(c.OAuthProvider), nullString(c.OAuthSubject), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (r *UserRepository) getCredential(ctx context.Context, where string, args ...any) (*models.Credential, error) {
	query := "SELECT " + credentialColumns + " FROM credentials WHERE " + where
	c, err := scanCredential(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return c, nil
}

// GetCredentialByEmail retrieves a credential by email address
func (r *UserRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.getCredential(ctx, "email = ?", email)
}

// GetCredentialByID retrieves a credential by ID
func (r *UserRepository) GetCredentialByID(ctx context.Context, id string) (*models.Credential, error) {
	return r.getCredential(ctx, "id = ?", id)
}

// GetCredentialByOAuth retrieves a credential by OAuth provider and subject
func (r *UserRepository) GetCredentialByOAuth(ctx context.Context, provider, subject string) (*models.Credential, error) {
	return r.getCredential(ctx, "oauth_provider = ? AND oauth_subject = ?", provider, subject)
}

// LinkOAuthProvider links an existing credential to an OAuth provider
func (r *UserRepository) LinkOAuthProvider(ctx context.Context, id, provider, subject string) error {
	query := `
		UPDATE credentials
		SET oauth_provider = ?, oauth_subject = ?
		WHERE id = ?
		AND (oauth_provider IS NULL OR oauth_provider = '')
	`
	result, err := r.db.ExecContext(ctx, query, provider, subject, id)
	if err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("oauth provider already linked")
	}
	return nil
}

// UpdatePasswordHash replaces a credential's password hash
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE credentials SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ListCredentials returns every credential, oldest first
func (r *UserRepository) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+credentialColumns+" FROM credentials ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, *c)
	}
	return creds, rows.Err()
}

const profileColumns = "id, email, display_name, COALESCE(family_id, ''), created_at"

func scanProfile(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.FamilyID, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateProfile inserts the profile record for a credential
func (r *UserRepository) CreateProfile(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, display_name, family_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.DisplayName, nullString(u.FamilyID), u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by user ID, or nil if none exists
func (r *UserRepository) GetProfile(ctx context.Context, id string) (*models.User, error) {
	u, err := scanProfile(r.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return u, nil
}

// UpdateDisplayName changes a profile's display name
func (r *UserRepository) UpdateDisplayName(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET display_name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

func (r *UserRepository) listProfiles(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// GetFamilyMembers lists the profiles attached to a family, oldest first
func (r *UserRepository) GetFamilyMembers(ctx context.Context, familyID string) ([]models.User, error) {
	return r.listProfiles(ctx, "SELECT "+profileColumns+" FROM users WHERE family_id = ? ORDER BY created_at ASC", familyID)
}

// ListProfiles returns every profile, oldest first
func (r *UserRepository) ListProfiles(ctx context.Context) ([]models.User, error) {
	return r.listProfiles(ctx, "SELECT "+profileColumns+" FROM users ORDER BY created_at ASC")
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(ctx context.Context, sessionID, userID string, expiresAt time.Time) (*models.Session, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, sessionID, userID, expiresAt, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and reports how many
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
