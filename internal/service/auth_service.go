package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"familytasks/internal/database"
	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/security"
	"familytasks/internal/validation"
)

// signUpAttempts bounds how often onboarding is retried after losing a
// family code race to a concurrent signup
const signUpAttempts = 3

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// SignUpInput carries a new account's details
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Surname     string
	FamilyCode  string
}

// OAuthIdentity is what an OAuth provider tells us about a user
type OAuthIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// AuthResult is a freshly issued bearer token and the user it belongs to
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Identity is an authenticated caller
type Identity struct {
	User      *models.User
	SessionID string
}

// AuthService handles account creation, sessions and bearer tokens
type AuthService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	families        *FamilyService
	tokens          *security.TokenIssuer
	sessionDuration time.Duration
	log             *logrus.Entry
}

// NewAuthService creates a new auth service
func NewAuthService(db *database.DB, userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository,
	families *FamilyService, tokens *security.TokenIssuer, sessionDuration time.Duration, log *logrus.Entry) *AuthService {
	return &AuthService{
		db:              db,
		userRepo:        userRepo,
		familyRepo:      familyRepo,
		families:        families,
		tokens:          tokens,
		sessionDuration: sessionDuration,
		log:             log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a credential and profile and attaches the user to a
// family. Nothing is written when any step fails.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if err := validation.ValidateName(displayName); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &models.Credential{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
	}
	user, err := s.onboard(ctx, cred, displayName, in.Surname, in.FamilyCode)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// onboard writes cred and a profile in one transaction, resolving the
// family first. The transaction is retried when a concurrent signup
// claims the family code we allocated.
func (s *AuthService) onboard(ctx context.Context, cred *models.Credential, displayName, surname, familyCode string) (*models.User, error) {
	var user *models.User
	var err error
	for attempt := 0; attempt < signUpAttempts; attempt++ {
		user, err = s.onboardTx(ctx, cred, displayName, surname, familyCode)
		if !errors.Is(err, errFamilyCodeRace) {
			break
		}
		s.log.WithField("attempt", attempt+1).Warn("family code race during signup, retrying")
	}
	if errors.Is(err, errFamilyCodeRace) {
		return nil, ErrCodeSpaceExhausted
	}
	return user, err
}

func (s *AuthService) onboardTx(ctx context.Context, cred *models.Credential, displayName, surname, familyCode string) (*models.User, error) {
	var user *models.User
	err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
		users := s.userRepo.WithTx(tx)
		families := s.familyRepo.WithTx(tx)

		existing, err := users.GetCredentialByEmail(ctx, cred.Email)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return ErrEmailTaken
		}

		family, created, err := s.families.ResolveFamily(ctx, families, surname, familyCode)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		cred.CreatedAt = now
		if err := users.CreateCredential(ctx, cred); err != nil {
			if s.db.Dialect.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}

		user = &models.User{
			ID:          cred.ID,
			Email:       cred.Email,
			DisplayName: displayName,
			FamilyID:    family.ID,
			CreatedAt:   now,
		}
		if err := users.CreateProfile(ctx, user); err != nil {
			return err
		}
		user.OAuthProvider = cred.OAuthProvider

		s.log.WithFields(logrus.Fields{
			"user_id":        user.ID,
			"family_id":      family.ID,
			"family_created": created,
		}).Info("user signed up")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies a password and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	cred, err := s.userRepo.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if cred == nil || !security.CheckPassword(password, cred.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	user, err := s.mergeProfile(ctx, cred)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// mergeProfile combines a credential with its profile. A missing profile
// yields the credential data alone.
func (s *AuthService) mergeProfile(ctx context.Context, cred *models.Credential) (*models.User, error) {
	profile, err := s.userRepo.GetProfile(ctx, cred.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		s.log.WithField("user_id", cred.ID).Warn("profile missing, using credential data only")
		return &models.User{
			ID:            cred.ID,
			Email:         cred.Email,
			OAuthProvider: cred.OAuthProvider,
			CreatedAt:     cred.CreatedAt,
		}, nil
	}
	profile.Email = cred.Email
	profile.OAuthProvider = cred.OAuthProvider
	return profile, nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration).UTC()

	if _, err := s.userRepo.CreateSession(ctx, sessionID, user.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	token, err := s.tokens.Issue(user.ID, sessionID, expiresAt)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to its user. Every failure is
// reported as ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	session, err := s.userRepo.GetSession(ctx, claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.UserID != claims.UserID() {
		return nil, ErrUnauthorized
	}
	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(ctx, session.ID)
		return nil, ErrUnauthorized
	}

	user, err := s.CurrentUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &Identity{User: user, SessionID: session.ID}, nil
}

// CurrentUser loads the merged user for id
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*models.User, error) {
	cred, err := s.userRepo.GetCredentialByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if cred == nil {
		return nil, ErrUnauthorized
	}
	return s.mergeProfile(ctx, cred)
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.userRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// UpdateDisplayName changes the caller's display name
func (s *AuthService) UpdateDisplayName(ctx context.Context, user *models.User, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateDisplayName(ctx, user.ID, name); err != nil {
		return nil, err
	}
	updated := *user
	updated.DisplayName = name
	return &updated, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	cred, err := s.userRepo.GetCredentialByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get credential: %w", err)
	}
	if cred == nil {
		return ErrUnauthorized
	}
	if !security.CheckPassword(current, cred.PasswordHash) {
		return ErrWrongPassword
	}
	if err := validation.ValidatePassword(next); err != nil {
		return err
	}

	hash, err := security.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePasswordHash(ctx, user.ID, hash)
}

// OAuthLogin signs in a provider identity. An unknown identity with a
// known email is linked to that credential; otherwise a new account is
// onboarded with familyCode or surname. Without either, the last word
// of the provider name is used as the surname.
func (s *AuthService) OAuthLogin(ctx context.Context, id OAuthIdentity, familyCode, surname string) (*AuthResult, error) {
	if id.Provider == "" || id.Subject == "" {
		return nil, errors.New("missing oauth provider information")
	}
	email := normalizeEmail(id.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	cred, err := s.userRepo.GetCredentialByOAuth(ctx, id.Provider, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if cred == nil {
		existing, err := s.userRepo.GetCredentialByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			if existing.OAuthProvider != "" && existing.OAuthProvider != id.Provider {
				return nil, ErrEmailTaken
			}
			if existing.OAuthProvider == "" {
				if err := s.userRepo.LinkOAuthProvider(ctx, existing.ID, id.Provider, id.Subject); err != nil {
					return nil, fmt.Errorf("failed to link oauth provider: %w", err)
				}
				existing.OAuthProvider = id.Provider
				existing.OAuthSubject = id.Subject
			}
			cred = existing
		}
	}

	var user *models.User
	if cred != nil {
		user, err = s.mergeProfile(ctx, cred)
	} else {
		user, err = s.onboardOAuth(ctx, id, email, familyCode, surname)
	}
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

func (s *AuthService) onboardOAuth(ctx context.Context, id OAuthIdentity, email, familyCode, surname string) (*models.User, error) {
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	if strings.TrimSpace(familyCode) == "" && strings.TrimSpace(surname) == "" {
		if fields := strings.Fields(name); len(fields) > 1 {
			surname = fields[len(fields)-1]
		}
	}

	cred := &models.Credential{
		ID:            uuid.New().String(),
		Email:         email,
		OAuthProvider: id.Provider,
		OAuthSubject:  id.Subject,
	}
	return s.onboard(ctx, cred, name, surname, familyCode)
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}
