package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytasks/internal/logger"
	"familytasks/internal/models"
)

func TestBackupRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	ctx := context.Background()
	user := src.signUp(t, "a@example.com", "Smith", "").User
	src.signUp(t, "b@example.com", "Smith", "")
	_, err := src.taskSvc.AddTask(ctx, user, TaskInput{Name: "Dishes", DueDate: "2026-05-01", Fee: ptr(1.5)})
	require.NoError(t, err)
	src.taskSvc.Wait()
	_, err = newSuggestedService(src).SeedDefaults(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	exported, err := NewBackupService(src.db, logger.Discard()).Export(ctx, &buf)
	require.NoError(t, err)
	assert.Len(t, exported.Credentials, 2)
	assert.Len(t, exported.Families, 1)

	dst := newTestEnv(t)
	dst.signUp(t, "stale@example.com", "Stale", "")
	imported, err := NewBackupService(dst.db, logger.Discard()).Import(ctx, bytes.NewReader(buf.Bytes()), true)
	require.NoError(t, err)
	assert.Len(t, imported.Tasks, 1)

	assert.Equal(t, 2, dst.count(t, "credentials"))
	assert.Equal(t, 1, dst.count(t, "families"))

	tasks, err := dst.tasks.ListTasks(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(exported.Tasks, tasks, cmpopts.IgnoreFields(models.Task{}, "DueDate", "CreatedAt")); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}

	// Imported accounts keep their passwords
	_, err = dst.authSvc.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewBackupService(env.db, logger.Discard()).Import(context.Background(), bytes.NewReader([]byte(`{"version":"9"}`)), false)
	assert.Error(t, err)
}
