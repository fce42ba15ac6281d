package models

import "time"

// Family is a group of users sharing a join code and a task list
type Family struct {
	ID            string                  `json:"id"`
	Surname       string                  `json:"surname"`
	FamilyCode    string                  `json:"familyCode"`
	Notifications NotificationPreferences `json:"notifications"`
	CreatedAt     time.Time               `json:"createdAt"`
}

// NotificationPreferences controls which notifications a family receives
type NotificationPreferences struct {
	Email bool `json:"email"`
}

// FamilyWithMembers combines a family with its member profiles
type FamilyWithMembers struct {
	Family  Family `json:"family"`
	Members []User `json:"members"`
}
