package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxPasswordBytes is the longest password bcrypt will hash
const MaxPasswordBytes = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if len(password) > MaxPasswordBytes {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes)}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateSurname checks a family surname
func ValidateSurname(surname string) error {
	surname = strings.TrimSpace(surname)
	if surname == "" {
		return ValidationError{Field: "surname", Message: "surname is required when no family code is given"}
	}
	if len(surname) > 100 {
		return ValidationError{Field: "surname", Message: "surname must be at most 100 characters"}
	}
	return nil
}

// ValidateTaskName checks a task or suggested task name
func ValidateTaskName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "task name is required"}
	}
	if len(name) > 200 {
		return ValidationError{Field: "name", Message: "task name must be at most 200 characters"}
	}
	return nil
}

// ValidateFee checks an optional fee or estimated cost
func ValidateFee(fee *float64) error {
	if fee != nil && *fee < 0 {
		return ValidationError{Field: "fee", Message: "fee must not be negative"}
	}
	return nil
}
