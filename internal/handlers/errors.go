package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"familytasks/internal/credentials"
	"familytasks/internal/service"
	"familytasks/internal/validation"
)

// errorBody is the JSON shape of every REST error response
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		entry := LoggerFromContext(r.Context()).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error(logMsg)
		} else {
			entry.Warn(logMsg)
		}
	}

	respondWithJSON(w, status, errorBody{Error: userMsg})
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// respondWithServiceError maps service errors onto HTTP statuses. Unknown
// errors are logged and reported as a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, credentials.ErrInvalidFamilyCode):
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid family code", Field: "familyCode"})
	case errors.Is(err, service.ErrInvalidStatus):
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid task status", Field: "status"})
	case errors.Is(err, service.ErrNoFamily):
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: "You are not part of a family"})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid email or password"})
	case errors.Is(err, service.ErrWrongPassword):
		respondWithJSON(w, http.StatusBadRequest, errorBody{Error: "Current password is incorrect", Field: "currentPassword"})
	case errors.Is(err, service.ErrUnauthorized):
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: ErrUnauthorized})
	case errors.Is(err, service.ErrForeignFamily):
		respondWithJSON(w, http.StatusForbidden, errorBody{Error: ErrForbidden})
	case errors.Is(err, service.ErrTaskNotFound):
		respondWithJSON(w, http.StatusNotFound, errorBody{Error: "Task not found"})
	case errors.Is(err, service.ErrSuggestedTaskNotFound):
		respondWithJSON(w, http.StatusNotFound, errorBody{Error: "Suggested task not found"})
	case errors.Is(err, service.ErrFamilyNotFound):
		respondWithJSON(w, http.StatusNotFound, errorBody{Error: "Family not found"})
	case errors.Is(err, service.ErrEmailTaken):
		respondWithJSON(w, http.StatusConflict, errorBody{Error: "Email already registered", Field: "email"})
	case errors.Is(err, service.ErrFamilyCodeTaken):
		respondWithJSON(w, http.StatusConflict, errorBody{Error: "Family code already in use", Field: "familyCode"})
	default:
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "request failed", err)
	}
}
