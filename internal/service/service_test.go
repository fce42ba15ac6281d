package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"familytasks/internal/database"
	"familytasks/internal/logger"
	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/security"
)

type testEnv struct {
	db        *database.DB
	users     *repository.UserRepository
	families  *repository.FamilyRepository
	tasks     *repository.TaskRepository
	familySvc *FamilyService
	authSvc   *AuthService
	taskSvc   *TaskService
	notifier  *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations("../../migrations"))

	log := logger.Discard()
	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		families: repository.NewFamilyRepository(db),
		tasks:    repository.NewTaskRepository(db),
		notifier: &recordingNotifier{calls: make(chan notification, 10)},
	}
	env.familySvc = NewFamilyService(db, env.families, env.users, log)
	env.authSvc = NewAuthService(db, env.users, env.families, env.familySvc,
		security.NewTokenIssuer("test-secret", "familytasks-test"), time.Hour, log)
	env.taskSvc = NewTaskService(env.tasks, env.families, env.users, env.notifier, log)
	return env
}

func (e *testEnv) signUp(t *testing.T, email, surname, code string) *AuthResult {
	t.Helper()
	res, err := e.authSvc.SignUp(context.Background(), SignUpInput{
		Email:       email,
		Password:    "password123",
		DisplayName: "Member " + surname,
		Surname:     surname,
		FamilyCode:  code,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

type notification struct {
	family     string
	task       string
	recipients []string
}

type recordingNotifier struct {
	calls chan notification
}

func (n *recordingNotifier) NotifyTaskAdded(ctx context.Context, family *models.Family, task *models.Task, recipients []models.User) error {
	emails := make([]string, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, r.Email)
	}
	n.calls <- notification{family: family.ID, task: task.ID, recipients: emails}
	return nil
}
