package handlers

import (
	"net/http"
	"strings"

	"familytasks/internal/models"
	"familytasks/internal/service"
	"familytasks/internal/validation"
)

// LegacyHandler keeps the older family-keyed HTTP functions working.
// Every call is authenticated and the family id must be the caller's.
type LegacyHandler struct {
	taskService      *service.TaskService
	suggestedService *service.SuggestedTaskService
}

// NewLegacyHandler creates a new legacy handler
func NewLegacyHandler(taskService *service.TaskService, suggestedService *service.SuggestedTaskService) *LegacyHandler {
	return &LegacyHandler{
		taskService:      taskService,
		suggestedService: suggestedService,
	}
}

// GetFamilyTasks handles GET /getFamilyTasks?familyId=
func (h *LegacyHandler) GetFamilyTasks(w http.ResponseWriter, r *http.Request) {
	familyID := strings.TrimSpace(r.URL.Query().Get("familyId"))
	if familyID == "" {
		respondWithServiceError(w, r, validation.ValidationError{Field: "familyId", Message: "familyId is required"})
		return
	}

	user := GetUserFromContext(r.Context())
	if err := h.taskService.CheckFamilyAccess(user, familyID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	tasks, err := h.taskService.ListTasks(r.Context(), user, "")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

type legacyAddTaskRequest struct {
	FamilyID    string `json:"family_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AddTask handles POST /addTask. New tasks always start Pending.
func (h *LegacyHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req legacyAddTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}
	if strings.TrimSpace(req.FamilyID) == "" {
		respondWithServiceError(w, r, validation.ValidationError{Field: "family_id", Message: "family_id is required"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondWithServiceError(w, r, validation.ValidationError{Field: "description", Message: "description is required"})
		return
	}

	user := GetUserFromContext(r.Context())
	if err := h.taskService.CheckFamilyAccess(user, req.FamilyID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	task, err := h.taskService.AddTask(r.Context(), user, service.TaskInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      string(models.StatusPending),
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"id": task.ID})
}

type legacyStatusRequest struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// UpdateTaskStatus handles POST /updateTaskStatus
func (h *LegacyHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req legacyStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}
	if strings.TrimSpace(req.TaskID) == "" {
		respondWithServiceError(w, r, validation.ValidationError{Field: "taskId", Message: "taskId is required"})
		return
	}

	if _, err := h.taskService.UpdateStatus(r.Context(), GetUserFromContext(r.Context()), req.TaskID, req.Status); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Task updated successfully"))
}

// GetSuggestedTasks handles GET /getSuggestedTasks
func (h *LegacyHandler) GetSuggestedTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.suggestedService.ListSuggested(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}
