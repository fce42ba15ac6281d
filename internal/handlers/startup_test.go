package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestReadinessLifecycle(t *testing.T) {
	r := NewReadiness("Database connection", "Running migrations")

	rec := serve(r, http.MethodGet, "/api/tasks")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz").Code)

	r.SetCurrentStep("Database connection")
	r.CompleteStep("Database connection")

	rec = serve(r, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status StartupStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Ready)
	assert.Equal(t, 50, status.Progress)
	assert.True(t, status.Steps[0].Completed)
	assert.False(t, status.Steps[1].Completed)

	app := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.MarkReady(app)
	assert.Equal(t, http.StatusTeapot, serve(r, http.MethodGet, "/api/tasks").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/readyz").Code)

	r.MarkNotReady("Shutting down")
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusTeapot, serve(r, http.MethodGet, "/api/tasks").Code)
	assert.Equal(t, "Shutting down", r.Status().Current)
}

func TestReadinessStatusIsCopy(t *testing.T) {
	r := NewReadiness("one")
	s := r.Status()
	s.Steps[0].Completed = true
	assert.False(t, r.Status().Steps[0].Completed)
}
