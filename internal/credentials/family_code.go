package credentials

import (
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"strings"
)

const (
	// FamilyCodeLength is the number of characters in a join code
	FamilyCodeLength = 6

	familyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	familyCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

	ErrInvalidFamilyCode = errors.New("family code must be 6 alphanumeric characters")
)

// GenerateFamilyCode draws FamilyCodeLength characters uniformly from [A-Z0-9]
func GenerateFamilyCode() (string, error) {
	code := make([]byte, FamilyCodeLength)
	max := big.NewInt(int64(len(familyCodeAlphabet)))

	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = familyCodeAlphabet[num.Int64()]
	}

	return string(code), nil
}

// NormalizeFamilyCode trims and upper-cases user input
func NormalizeFamilyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateFamilyCode checks an already-normalized code
func ValidateFamilyCode(code string) error {
	if !familyCodePattern.MatchString(code) {
		return ErrInvalidFamilyCode
	}
	return nil
}
