package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytasks/internal/credentials"
	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/validation"
)

// sequence returns a generator that yields codes in order, repeating the last
func sequence(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func TestAllocateFamilyCodeSkipsUsedCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.signUp(t, "a@example.com", "Smith", "")
	family, err := env.familySvc.GetFamily(ctx, first.User)
	require.NoError(t, err)

	env.familySvc.generate = sequence(family.FamilyCode, family.FamilyCode, "NEW123")
	code, err := env.familySvc.AllocateFamilyCode(ctx, env.families)
	require.NoError(t, err)
	assert.Equal(t, "NEW123", code)
}

func TestAllocateFamilyCodeExhausted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.signUp(t, "a@example.com", "Smith", "")
	family, err := env.familySvc.GetFamily(ctx, first.User)
	require.NoError(t, err)

	calls := 0
	env.familySvc.generate = func() (string, error) {
		calls++
		return family.FamilyCode, nil
	}
	_, err = env.familySvc.AllocateFamilyCode(ctx, env.families)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, MaxCodeAttempts, calls)
}

// claimCodeFirst inserts a rival family holding the same code just before
// the real insert, for the first n inserts.
func claimCodeFirst(n int) func(context.Context, *repository.FamilyRepository, *models.Family) error {
	claimed := 0
	return func(ctx context.Context, families *repository.FamilyRepository, f *models.Family) error {
		if claimed < n {
			claimed++
			rival := &models.Family{
				ID:         "rival-" + f.ID,
				Surname:    "Rival",
				FamilyCode: f.FamilyCode,
				CreatedAt:  time.Now().UTC(),
			}
			if err := families.CreateFamily(ctx, rival); err != nil {
				return err
			}
		}
		return families.CreateFamily(ctx, f)
	}
}

func TestSignUpRetriesAfterFamilyCodeRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := testutil.ToFloat64(familyCodeCollisions)

	env.familySvc.generate = sequence("RACE01", "FRESH1")
	env.familySvc.insert = claimCodeFirst(1)

	res := env.signUp(t, "a@example.com", "Smith", "")
	family, err := env.familySvc.GetFamily(ctx, res.User)
	require.NoError(t, err)
	assert.Equal(t, "FRESH1", family.FamilyCode)
	assert.Equal(t, "Smith", family.Surname)

	// The losing attempt rolled back together with the rival row
	assert.Equal(t, 1, env.count(t, "families"))
	assert.Equal(t, 1, env.count(t, "credentials"))
	assert.Equal(t, before+1, testutil.ToFloat64(familyCodeCollisions))
}

func TestSignUpGivesUpAfterRepeatedFamilyCodeRaces(t *testing.T) {
	env := newTestEnv(t)
	before := testutil.ToFloat64(familyCodeCollisions)

	inserts := 0
	claim := claimCodeFirst(signUpAttempts)
	env.familySvc.generate = sequence("RACE01")
	env.familySvc.insert = func(ctx context.Context, families *repository.FamilyRepository, f *models.Family) error {
		inserts++
		return claim(ctx, families, f)
	}

	_, err := env.authSvc.SignUp(context.Background(), SignUpInput{
		Email:       "a@example.com",
		Password:    "password123",
		DisplayName: "Alice",
		Surname:     "Smith",
	})
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, signUpAttempts, inserts)
	assert.Equal(t, before+float64(signUpAttempts), testutil.ToFloat64(familyCodeCollisions))
	assert.Zero(t, env.count(t, "families"))
	assert.Zero(t, env.count(t, "credentials"))
	assert.Zero(t, env.count(t, "users"))
}

func TestAllocatedCodesAreWellFormedAndUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	seen := map[string]bool{}
	for _, surname := range []string{"Smith", "Jones", "Brown", "Garcia", "Miller"} {
		res := env.signUp(t, surname+"@example.com", surname, "")
		family, err := env.familySvc.GetFamily(ctx, res.User)
		require.NoError(t, err)
		assert.Regexp(t, pattern, family.FamilyCode)
		assert.False(t, seen[family.FamilyCode], "duplicate code %s", family.FamilyCode)
		seen[family.FamilyCode] = true
	}
}

func TestResolveFamilyRequiresSurnameWithoutCode(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.familySvc.ResolveFamily(context.Background(), env.families, "  ", "")
	var verr validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "surname", verr.Field)
}

func TestChangeFamilyCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	smith := env.signUp(t, "a@example.com", "Smith", "")
	jones := env.signUp(t, "b@example.com", "Jones", "")
	jonesFamily, err := env.familySvc.GetFamily(ctx, jones.User)
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"too short", "ABC", credentials.ErrInvalidFamilyCode},
		{"bad characters", "AB-123", credentials.ErrInvalidFamilyCode},
		{"taken", jonesFamily.FamilyCode, ErrFamilyCodeTaken},
		{"normalized", " smith1 ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, err := env.familySvc.ChangeFamilyCode(ctx, smith.User, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SMITH1", family.FamilyCode)
		})
	}
}

func TestFamilyWithoutMembership(t *testing.T) {
	env := newTestEnv(t)
	orphan := &models.User{ID: "x"}

	_, err := env.familySvc.GetFamily(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrNoFamily)
	_, err = env.familySvc.Members(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrNoFamily)
}

func TestUpdateNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.signUp(t, "a@example.com", "Smith", "")

	family, err := env.familySvc.UpdateNotifications(ctx, res.User, models.NotificationPreferences{Email: false})
	require.NoError(t, err)
	assert.False(t, family.Notifications.Email)

	reloaded, err := env.familySvc.GetFamily(ctx, res.User)
	require.NoError(t, err)
	assert.False(t, reloaded.Notifications.Email)
}
