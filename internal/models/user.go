package models

import "time"

// Credential is the login identity of a user
type Credential struct {
	ID            string
	Email         string
	PasswordHash  string
	OAuthProvider string
	OAuthSubject  string
	CreatedAt     time.Time
}

// User is a profile merged with its credential. FamilyID is empty when
// the profile record is missing.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	FamilyID      string    `json:"familyId"`
	OAuthProvider string    `json:"oauthProvider,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasFamily reports whether the user is attached to a family
func (u *User) HasFamily() bool {
	return u.FamilyID != ""
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
