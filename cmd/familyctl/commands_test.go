package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytasks/internal/service"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "ctl.db"))
	t.Setenv("MIGRATIONS_PATH", "../../migrations")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	_, out, err := runApp(t, stdin, args...)
	return out, err
}

// runApp executes args the way main does and returns the closed app
func runApp(t *testing.T, stdin string, args ...string) (*app, string, error) {
	t.Helper()
	a := &app{}
	defer a.close()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return a, out.String(), err
}

func TestSeedExportImport(t *testing.T) {
	dir := setupEnv(t)

	out, err := runCmd(t, "", "seed-suggested")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded")

	extra := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte(`suggested_tasks:
  - name: Wash the car
    description: Inside and out
    estimated_cost: 20
`), 0o600))
	out, err = runCmd(t, "", "seed-suggested", "--file", extra)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 suggested tasks")

	backup := filepath.Join(dir, "out", "backup.json")
	_, err = runCmd(t, "", "export", "--output", backup)
	require.NoError(t, err)

	raw, err := os.ReadFile(backup)
	require.NoError(t, err)
	var data service.BackupData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, service.BackupVersion, data.Version)
	exported := len(data.SuggestedTasks)
	assert.Greater(t, exported, 1)

	out, err = runCmd(t, "no\n", "import", "--input", backup, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Import cancelled")

	out, err = runCmd(t, "", "import", "--input", backup, "--clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 families")
}

func TestImportRequiresInput(t *testing.T) {
	setupEnv(t)
	_, err := runCmd(t, "", "import")
	require.Error(t, err)
}

func TestFailedCommandClosesDatabase(t *testing.T) {
	dir := setupEnv(t)

	a, _, err := runApp(t, "", "import", "--input", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	require.NotNil(t, a.db, "database should have been opened before the command ran")
	assert.ErrorContains(t, a.db.Ping(), "database is closed")
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("yes\n"), &out, "? "))
	assert.False(t, confirm(strings.NewReader("y\n"), &out, "? "))
	assert.False(t, confirm(strings.NewReader(""), &out, "? "))
}
