package handlers

import (
	"net/http"

	"familytasks/internal/service"
)

// TaskHandler serves the JSON task API
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

type taskRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	DueDate     string   `json:"dueDate"`
	Fee         *float64 `json:"fee"`
}

func (req taskRequest) input() service.TaskInput {
	return service.TaskInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Fee:         req.Fee,
	}
}

type taskPatchRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	DueDate     *string  `json:"dueDate"`
	Fee         *float64 `json:"fee"`
}

func (req taskPatchRequest) update() service.TaskUpdate {
	return service.TaskUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Fee:         req.Fee,
	}
}

// List returns the family's tasks, optionally filtered by ?status=
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListTasks(r.Context(), GetUserFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// Create adds a task to the caller's family
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	task, err := h.taskService.AddTask(r.Context(), GetUserFromContext(r.Context()), req.input())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}

// Get returns a single task
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.GetTask(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

// Update applies a partial update to a task
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req taskPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"), req.update())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

// Complete marks a task Completed
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.CompleteTask(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

// Delete removes a task
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.taskService.DeleteTask(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
