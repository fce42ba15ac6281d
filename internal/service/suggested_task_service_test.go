package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytasks/internal/logger"
	"familytasks/internal/models"
	"familytasks/internal/repository"
)

func newSuggestedService(env *testEnv) *SuggestedTaskService {
	return NewSuggestedTaskService(env.db, repository.NewSuggestedTaskRepository(env.db), env.taskSvc, logger.Discard())
}

func TestSeedDefaultsOnlyWhenEmpty(t *testing.T) {
	env := newTestEnv(t)
	svc := newSuggestedService(env)
	ctx := context.Background()

	n, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	again, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	list, err := svc.ListSuggested(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestImportYAML(t *testing.T) {
	env := newTestEnv(t)
	svc := newSuggestedService(env)
	ctx := context.Background()

	n, err := svc.ImportYAML(ctx, strings.NewReader(`
suggested_tasks:
  - name: Rake leaves
    estimated_cost: 6.5
  - name: Sweep porch
`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.ImportYAML(ctx, strings.NewReader("suggested_tasks:\n  - description: no name\n"))
	assert.Error(t, err)
	assert.Equal(t, 2, env.count(t, "suggested_tasks"), "invalid file imports nothing")
}

func TestPromote(t *testing.T) {
	env := newTestEnv(t)
	svc := newSuggestedService(env)
	ctx := context.Background()
	user := env.signUp(t, "a@example.com", "Smith", "").User

	st, err := svc.CreateSuggested(ctx, "Wash car", "inside and out", ptr(10.0))
	require.NoError(t, err)

	task, err := svc.Promote(ctx, user, st.ID)
	require.NoError(t, err)
	env.taskSvc.Wait()

	assert.Equal(t, "Wash car", task.Name)
	assert.Equal(t, "inside and out", task.Description)
	assert.Equal(t, user.FamilyID, task.FamilyID)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.False(t, task.IsSuggested)
	require.NotNil(t, task.Fee)
	assert.Equal(t, 10.0, *task.Fee)

	_, err = svc.Promote(ctx, user, "missing")
	assert.ErrorIs(t, err, ErrSuggestedTaskNotFound)
}
