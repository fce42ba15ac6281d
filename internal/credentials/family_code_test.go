package credentials

import (
	"regexp"
	"testing"
)

var codeFormat = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerateFamilyCode(t *testing.T) {
	tests := []struct {
		name        string
		iterations  int
		checkUnique bool
	}{
		{
			name:       "generates codes of correct format",
			iterations: 500,
		},
		{
			name:        "generates distinct codes",
			iterations:  50,
			checkUnique: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < tt.iterations; i++ {
				code, err := GenerateFamilyCode()
				if err != nil {
					t.Fatalf("GenerateFamilyCode() error = %v", err)
				}
				if !codeFormat.MatchString(code) {
					t.Errorf("code %q does not match ^[A-Z0-9]{6}$", code)
				}
				if tt.checkUnique {
					if seen[code] {
						t.Errorf("duplicate code generated: %s", code)
					}
					seen[code] = true
				}
			}
		})
	}
}

func TestGenerateFamilyCodeUsesWholeAlphabet(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 2000; i++ {
		code, err := GenerateFamilyCode()
		if err != nil {
			t.Fatalf("GenerateFamilyCode() error = %v", err)
		}
		for _, c := range code {
			seen[c] = true
		}
	}
	// 12000 draws over 36 symbols; every symbol shows up with overwhelming probability
	if len(seen) != len(familyCodeAlphabet) {
		t.Errorf("saw %d distinct symbols, want %d", len(seen), len(familyCodeAlphabet))
	}
}

func TestNormalizeAndValidateFamilyCode(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"abc123", "ABC123", false},
		{"  XYZ789 ", "XYZ789", false},
		{"ABC12", "ABC12", true},
		{"ABC1234", "ABC1234", true},
		{"ABC-12", "ABC-12", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeFamilyCode(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeFamilyCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
			err := ValidateFamilyCode(got)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFamilyCode(%q) error = %v, wantErr %v", got, err, tt.wantErr)
			}
		})
	}
}
