package models

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// ParseTaskStatus maps user input onto a status. Older clients sent
// "pending" and "Incomplete", both of which mean Pending.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "incomplete":
		return StatusPending, true
	case "in progress", "in_progress", "inprogress":
		return StatusInProgress, true
	case "completed", "complete", "done":
		return StatusCompleted, true
	}
	return "", false
}

// StatusOrDefault parses s, falling back to Pending for anything unknown
func StatusOrDefault(s string) TaskStatus {
	if status, ok := ParseTaskStatus(s); ok {
		return status
	}
	return StatusPending
}

// Task is a unit of work belonging to exactly one family
type Task struct {
	ID          string     `json:"id"`
	FamilyID    string     `json:"familyId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Fee         *float64   `json:"fee,omitempty"`
	IsSuggested bool       `json:"isSuggested"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// IsCompleted reports whether the task is done
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// SuggestedTask is a template that can be promoted into a Task
type SuggestedTask struct {
	ID            string     `json:"id" yaml:"-"`
	Name          string     `json:"name" yaml:"name"`
	Description   string     `json:"description" yaml:"description"`
	EstimatedCost *float64   `json:"estimatedCost,omitempty" yaml:"estimated_cost,omitempty"`
	Status        TaskStatus `json:"status" yaml:"-"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"-"`
}
