package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"familytasks/internal/database"
	"familytasks/internal/models"
	"familytasks/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version        string                 `json:"version"`
	ExportedAt     time.Time              `json:"exported_at"`
	DatabaseType   string                 `json:"database_type"`
	Families       []models.Family        `json:"families"`
	Credentials    []CredentialBackup     `json:"credentials"`
	Users          []models.User          `json:"users"`
	Tasks          []models.Task          `json:"tasks"`
	SuggestedTasks []models.SuggestedTask `json:"suggested_tasks"`
}

// CredentialBackup represents a credential record for backup
type CredentialBackup struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db        *database.DB
	families  *repository.FamilyRepository
	users     *repository.UserRepository
	tasks     *repository.TaskRepository
	suggested *repository.SuggestedTaskRepository
	log       *logrus.Entry
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logrus.Entry) *BackupService {
	return &BackupService{
		db:        db,
		families:  repository.NewFamilyRepository(db),
		users:     repository.NewUserRepository(db),
		tasks:     repository.NewTaskRepository(db),
		suggested: repository.NewSuggestedTaskRepository(db),
		log:       log,
	}
}

// Export writes every family, account, task and suggested task to w as JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	var err error
	if backup.Families, err = s.families.ListFamilies(ctx); err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	creds, err := s.users.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export credentials: %w", err)
	}
	for _, c := range creds {
		backup.Credentials = append(backup.Credentials, CredentialBackup(c))
	}
	if backup.Users, err = s.users.ListProfiles(ctx); err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	if backup.Tasks, err = s.tasks.ListTasks(ctx); err != nil {
		return nil, fmt.Errorf("failed to export tasks: %w", err)
	}
	if backup.SuggestedTasks, err = s.suggested.ListSuggestedTasks(ctx); err != nil {
		return nil, fmt.Errorf("failed to export suggested tasks: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"families":        len(backup.Families),
		"users":           len(backup.Credentials),
		"tasks":           len(backup.Tasks),
		"suggested_tasks": len(backup.SuggestedTasks),
	}).Info("database exported")
	return backup, nil
}

// clearOrder deletes children before parents
var clearOrder = []string{"tasks", "sessions", "users", "credentials", "families", "suggested_tasks"}

// Import restores a backup read from r in one transaction. With
// clearExisting every table is emptied first.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clearExisting bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.WithField("exported_at", backup.ExportedAt).Info("importing backup")

	err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
		if clearExisting {
			for _, table := range clearOrder {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear %s: %w", table, err)
				}
			}
		}

		families := s.families.WithTx(tx)
		for i := range backup.Families {
			if err := families.CreateFamily(ctx, &backup.Families[i]); err != nil {
				return err
			}
		}
		users := s.users.WithTx(tx)
		for _, c := range backup.Credentials {
			cred := models.Credential(c)
			if err := users.CreateCredential(ctx, &cred); err != nil {
				return err
			}
		}
		for i := range backup.Users {
			if err := users.CreateProfile(ctx, &backup.Users[i]); err != nil {
				return err
			}
		}
		tasks := s.tasks.WithTx(tx)
		for i := range backup.Tasks {
			if err := tasks.CreateTask(ctx, &backup.Tasks[i]); err != nil {
				return err
			}
		}
		suggested := s.suggested.WithTx(tx)
		for i := range backup.SuggestedTasks {
			if err := suggested.CreateSuggestedTask(ctx, &backup.SuggestedTasks[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import backup: %w", err)
	}

	s.log.Info("database import completed")
	return &backup, nil
}
