package handlers

import (
	"net/http"

	"familytasks/internal/security"
	"familytasks/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	stateSigner          *security.StateSigner
	oauthRedirectBaseURL string
	frontendURL          string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider,
	stateSigner *security.StateSigner, oauthRedirectBaseURL, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		stateSigner:          stateSigner,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		frontendURL:          frontendURL,
	}
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Surname     string `json:"surname"`
	FamilyCode  string `json:"familyCode"`
}

// SignUp creates an account and returns a bearer token
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	result, err := h.authService.SignUp(r.Context(), service.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Surname:     req.Surname,
		FamilyCode:  req.FamilyCode,
	})
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Logout ends the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentityFromContext(r.Context())
	if err := h.authService.Logout(r.Context(), identity.SessionID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's merged profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, GetUserFromContext(r.Context()))
}

type profileRequest struct {
	DisplayName string `json:"displayName"`
}

// UpdateProfile changes the caller's display name
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	user, err := h.authService.UpdateDisplayName(r.Context(), GetUserFromContext(r.Context()), req.DisplayName)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword replaces the caller's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return
	}

	err := h.authService.ChangePassword(r.Context(), GetUserFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
