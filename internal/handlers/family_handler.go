package handlers

import (
	"net/http"

	"familytasks/internal/models"
	"familytasks/internal/service"
)

// FamilyHandler serves the caller's family settings
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// GetFamily returns surname, join code and notification preferences
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyService.GetFamily(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, family)
}

// Members lists the caller's family members
func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.familyService.Members(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if members == nil {
		members = []models.User{}
	}
	respondWithJSON(w, http.StatusOK, members)
}

type familyCodeRequest struct {
	FamilyCode string `json:"familyCode"`
}

// ChangeCode sets a new join code chosen by the caller
func (h *FamilyHandler) ChangeCode(w http.ResponseWriter, r *http.Request) {
	var req familyCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	family, err := h.familyService.ChangeFamilyCode(r.Context(), GetUserFromContext(r.Context()), req.FamilyCode)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, family)
}

// UpdateNotifications stores the family's notification preferences
func (h *FamilyHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var req models.NotificationPreferences
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	family, err := h.familyService.UpdateNotifications(r.Context(), GetUserFromContext(r.Context()), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, family)
}
