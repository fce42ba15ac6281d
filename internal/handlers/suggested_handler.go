package handlers

import (
	"net/http"

	"familytasks/internal/service"
)

// SuggestedTaskHandler serves suggested task templates
type SuggestedTaskHandler struct {
	suggestedService *service.SuggestedTaskService
}

// NewSuggestedTaskHandler creates a new suggested task handler
func NewSuggestedTaskHandler(suggestedService *service.SuggestedTaskService) *SuggestedTaskHandler {
	return &SuggestedTaskHandler{suggestedService: suggestedService}
}

type suggestedTaskRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	EstimatedCost *float64 `json:"estimatedCost"`
}

// List returns every suggested task
func (h *SuggestedTaskHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.suggestedService.ListSuggested(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// Create adds a suggested task
func (h *SuggestedTaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req suggestedTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	st, err := h.suggestedService.CreateSuggested(r.Context(), req.Name, req.Description, req.EstimatedCost)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, st)
}

// Promote turns a suggested task into a task of the caller's family
func (h *SuggestedTaskHandler) Promote(w http.ResponseWriter, r *http.Request) {
	task, err := h.suggestedService.Promote(r.Context(), GetUserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, task)
}
