package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"familytasks/internal/config"
	"familytasks/internal/security"
	"familytasks/internal/service"
)

const oauthCookieTTL = 10 * time.Minute

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// NewOAuthProviders builds the Google and Facebook providers from cfg.
// Providers without credentials are kept but refuse to start.
func NewOAuthProviders(cfg *config.Config) map[string]OAuthProvider {
	return map[string]OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}
}

// StartOAuth initiates the OAuth flow for a provider. Optional family_code
// and surname query parameters are carried through to onboarding.
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, r, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state, err := h.stateSigner.New()
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "failed to create oauth state", err)
		return
	}

	http.SetCookie(w, security.CreateTempCookie(r, "oauth_state", state, oauthCookieTTL))
	http.SetCookie(w, security.CreateTempCookie(r, "oauth_provider", providerKey, oauthCookieTTL))
	if familyCode := r.URL.Query().Get("family_code"); familyCode != "" {
		http.SetCookie(w, security.CreateTempCookie(r, "oauth_family_code", familyCode, oauthCookieTTL))
	}
	if surname := r.URL.Query().Get("surname"); surname != "" {
		http.SetCookie(w, security.CreateTempCookie(r, "oauth_surname", url.QueryEscape(surname), oauthCookieTTL))
	}

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback and hands the token to
// the frontend in the URL fragment
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, r, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, r, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state || !h.stateSigner.Valid(state) {
		respondWithError(w, r, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	if providerCookie, err := r.Cookie("oauth_provider"); err == nil && providerCookie.Value != providerKey {
		respondWithError(w, r, http.StatusBadRequest, "OAuth provider mismatch", "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Failed to exchange OAuth code", "", err)
		return
	}

	userInfo, err := fetchOAuthUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, r, http.StatusBadGateway, "Failed to fetch OAuth profile", "", err)
		return
	}

	familyCode := cookieValue(r, "oauth_family_code")
	surname, _ := url.QueryUnescape(cookieValue(r, "oauth_surname"))

	for _, name := range []string{"oauth_state", "oauth_provider", "oauth_family_code", "oauth_surname"} {
		http.SetCookie(w, security.CreateDeleteCookie(r, name))
	}

	result, err := h.authService.OAuthLogin(r.Context(), service.OAuthIdentity{
		Provider: providerKey,
		Subject:  userInfo.Subject,
		Email:    userInfo.Email,
		Name:     userInfo.Name,
	}, familyCode, surname)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	fragment := url.Values{"token": {result.Token}}.Encode()
	http.Redirect(w, r, strings.TrimRight(h.frontendURL, "/")+"/#"+fragment, http.StatusSeeOther)
}

func cookieValue(r *http.Request, name string) string {
	if cookie, err := r.Cookie(name); err == nil {
		return cookie.Value
	}
	return ""
}

// fetchOAuthUserInfo reads id, email and name from the provider's profile
// endpoint. Google and Facebook share the payload shape.
func fetchOAuthUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Label, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info: %w", provider.Label, err)
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}
