package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"familytasks/internal/credentials"
	"familytasks/internal/database"
	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/validation"
)

// MaxCodeAttempts bounds the draws made when allocating a family code
const MaxCodeAttempts = 64

var (
	ErrFamilyNotFound     = errors.New("family not found")
	ErrNoFamily           = errors.New("user is not attached to a family")
	ErrFamilyCodeTaken    = errors.New("family code already in use")
	ErrCodeSpaceExhausted = errors.New("could not allocate an unused family code")

	// errFamilyCodeRace marks a family insert that lost a race on the
	// family_code unique index. The enclosing transaction must be retried.
	errFamilyCodeRace = errors.New("family code claimed concurrently")
)

var familyCodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "familytasks_family_code_collisions_total",
	Help: "Generated family codes that were already in use",
})

// CodeGenerator produces candidate family codes
type CodeGenerator func() (string, error)

// FamilyService handles family lookup, onboarding and settings
type FamilyService struct {
	db         *database.DB
	familyRepo *repository.FamilyRepository
	userRepo   *repository.UserRepository
	generate   CodeGenerator
	// insert writes a new family row; a unique violation on it means
	// another writer claimed the code after AllocateFamilyCode checked it.
	insert func(ctx context.Context, families *repository.FamilyRepository, family *models.Family) error
	log    *logrus.Entry
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, familyRepo *repository.FamilyRepository, userRepo *repository.UserRepository, log *logrus.Entry) *FamilyService {
	return &FamilyService{
		db:         db,
		familyRepo: familyRepo,
		userRepo:   userRepo,
		generate:   credentials.GenerateFamilyCode,
		insert: func(ctx context.Context, families *repository.FamilyRepository, family *models.Family) error {
			return families.CreateFamily(ctx, family)
		},
		log: log,
	}
}

// AllocateFamilyCode draws codes until one is unused, giving up after
// MaxCodeAttempts draws.
func (s *FamilyService) AllocateFamilyCode(ctx context.Context, families *repository.FamilyRepository) (string, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate family code: %w", err)
		}
		exists, err := families.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		familyCodeCollisions.Inc()
		s.log.WithField("attempt", attempt).Debug("family code collision")
	}
	return "", ErrCodeSpaceExhausted
}

// ResolveFamily decides which family a new user belongs to. A join code
// must name an existing family. Without one, the oldest family with the
// same surname is reused, or a new family is created. created reports
// whether a family row was inserted.
func (s *FamilyService) ResolveFamily(ctx context.Context, families *repository.FamilyRepository, surname, familyCode string) (family *models.Family, created bool, err error) {
	if strings.TrimSpace(familyCode) != "" {
		code := credentials.NormalizeFamilyCode(familyCode)
		family, err := families.GetFamilyByCode(ctx, code)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check family code: %w", err)
		}
		if family == nil {
			return nil, false, credentials.ErrInvalidFamilyCode
		}
		return family, false, nil
	}

	surname = strings.TrimSpace(surname)
	if err := validation.ValidateSurname(surname); err != nil {
		return nil, false, err
	}

	existing, err := families.GetFamilyBySurname(ctx, surname)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up family by surname: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	family, err = s.createFamily(ctx, families, surname)
	if err != nil {
		return nil, false, err
	}
	return family, true, nil
}

func (s *FamilyService) createFamily(ctx context.Context, families *repository.FamilyRepository, surname string) (*models.Family, error) {
	code, err := s.AllocateFamilyCode(ctx, families)
	if err != nil {
		return nil, err
	}

	family := &models.Family{
		ID:            uuid.New().String(),
		Surname:       surname,
		FamilyCode:    code,
		Notifications: models.NotificationPreferences{Email: true},
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.insert(ctx, families, family); err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			familyCodeCollisions.Inc()
			return nil, errFamilyCodeRace
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"family_id": family.ID,
		"surname":   family.Surname,
	}).Info("family created")
	return family, nil
}

// GetFamily returns the caller's family
func (s *FamilyService) GetFamily(ctx context.Context, user *models.User) (*models.Family, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}
	family, err := s.familyRepo.GetFamilyByID(ctx, user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// Members lists every profile attached to the caller's family
func (s *FamilyService) Members(ctx context.Context, user *models.User) ([]models.User, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}
	members, err := s.userRepo.GetFamilyMembers(ctx, user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return members, nil
}

// ChangeFamilyCode replaces the caller's family code with a chosen one
func (s *FamilyService) ChangeFamilyCode(ctx context.Context, user *models.User, code string) (*models.Family, error) {
	family, err := s.GetFamily(ctx, user)
	if err != nil {
		return nil, err
	}

	code = credentials.NormalizeFamilyCode(code)
	if err := credentials.ValidateFamilyCode(code); err != nil {
		return nil, err
	}
	if code == family.FamilyCode {
		return family, nil
	}

	exists, err := s.familyRepo.CodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrFamilyCodeTaken
	}

	if err := s.familyRepo.UpdateFamilyCode(ctx, family.ID, code); err != nil {
		if s.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrFamilyCodeTaken
		}
		return nil, err
	}
	family.FamilyCode = code
	return family, nil
}

// UpdateNotifications stores the caller's family notification preferences
func (s *FamilyService) UpdateNotifications(ctx context.Context, user *models.User, prefs models.NotificationPreferences) (*models.Family, error) {
	family, err := s.GetFamily(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.familyRepo.UpdateNotifications(ctx, family.ID, prefs); err != nil {
		return nil, err
	}
	family.Notifications = prefs
	return family, nil
}
