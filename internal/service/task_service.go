package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/validation"
)

// notifyTimeout bounds a single background notification
const notifyTimeout = 30 * time.Second

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid task status")
	ErrForeignFamily = errors.New("family does not belong to caller")
)

// TaskNotifier is told about new tasks so other family members can be informed
type TaskNotifier interface {
	NotifyTaskAdded(ctx context.Context, family *models.Family, task *models.Task, recipients []models.User) error
}

// TaskInput describes a new task
type TaskInput struct {
	Name        string
	Description string
	Status      string
	DueDate     string
	Fee         *float64
}

// TaskUpdate is a partial change to a task. Nil fields are left alone and
// an empty DueDate clears it.
type TaskUpdate struct {
	Name        *string
	Description *string
	Status      *string
	DueDate     *string
	Fee         *float64
}

// TaskService handles task business logic. Every operation is scoped to
// the caller's family.
type TaskService struct {
	taskRepo   *repository.TaskRepository
	familyRepo *repository.FamilyRepository
	userRepo   *repository.UserRepository
	notifier   TaskNotifier
	log        *logrus.Entry
	wg         sync.WaitGroup
}

// NewTaskService creates a new task service. notifier may be nil.
func NewTaskService(taskRepo *repository.TaskRepository, familyRepo *repository.FamilyRepository,
	userRepo *repository.UserRepository, notifier TaskNotifier, log *logrus.Entry) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		familyRepo: familyRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		log:        log,
	}
}

// CheckFamilyAccess reports ErrForeignFamily unless familyID is the caller's
func (s *TaskService) CheckFamilyAccess(user *models.User, familyID string) error {
	if !user.HasFamily() {
		return ErrNoFamily
	}
	if familyID != user.FamilyID {
		return ErrForeignFamily
	}
	return nil
}

// ParseDueDate accepts YYYY-MM-DD or RFC3339. Empty input means no due date.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, validation.ValidationError{Field: "dueDate", Message: "due date must be YYYY-MM-DD or RFC3339"}
}

// AddTask creates a task in the caller's family. An unknown status is
// stored as Pending.
func (s *TaskService) AddTask(ctx context.Context, user *models.User, in TaskInput) (*models.Task, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateTaskName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateFee(in.Fee); err != nil {
		return nil, err
	}
	due, err := ParseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:          uuid.New().String(),
		FamilyID:    user.FamilyID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Status:      models.StatusOrDefault(in.Status),
		DueDate:     due,
		Fee:         in.Fee,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.taskRepo.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"family_id": task.FamilyID,
		"status":    task.Status,
	}).Info("task added")

	s.notifyAsync(user, task)
	return task, nil
}

// notifyAsync emails the other family members when the family opted in.
// Failures are logged and never reach the caller.
func (s *TaskService) notifyAsync(author *models.User, task *models.Task) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		log := s.log.WithField("task_id", task.ID)
		family, err := s.familyRepo.GetFamilyByID(ctx, task.FamilyID)
		if err != nil || family == nil {
			log.WithError(err).Warn("skipping notification, family not loaded")
			return
		}
		if !family.Notifications.Email {
			return
		}
		members, err := s.userRepo.GetFamilyMembers(ctx, family.ID)
		if err != nil {
			log.WithError(err).Warn("skipping notification, members not loaded")
			return
		}
		recipients := make([]models.User, 0, len(members))
		for _, m := range members {
			if m.ID != author.ID && m.Email != "" {
				recipients = append(recipients, m)
			}
		}
		if len(recipients) == 0 {
			return
		}
		if err := s.notifier.NotifyTaskAdded(ctx, family, task, recipients); err != nil {
			log.WithError(err).Error("task notification failed")
		}
	}()
}

// Wait blocks until in-flight notifications finish
func (s *TaskService) Wait() {
	s.wg.Wait()
}

// ListTasks returns the caller's family tasks newest first. An empty or
// "All" filter returns every status.
func (s *TaskService) ListTasks(ctx context.Context, user *models.User, statusFilter string) ([]models.Task, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}
	var status models.TaskStatus
	if f := strings.TrimSpace(statusFilter); f != "" && !strings.EqualFold(f, "all") {
		parsed, ok := models.ParseTaskStatus(f)
		if !ok {
			return nil, ErrInvalidStatus
		}
		status = parsed
	}
	return s.taskRepo.GetFamilyTasks(ctx, user.FamilyID, status)
}

// GetTask returns a task of the caller's family
func (s *TaskService) GetTask(ctx context.Context, user *models.User, id string) (*models.Task, error) {
	task, err := s.taskRepo.GetTaskByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil || !user.HasFamily() || task.FamilyID != user.FamilyID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// UpdateTask applies a partial update. Unlike AddTask an unknown status
// is rejected.
func (s *TaskService) UpdateTask(ctx context.Context, user *models.User, id string, upd TaskUpdate) (*models.Task, error) {
	task, err := s.GetTask(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := validation.ValidateTaskName(name); err != nil {
			return nil, err
		}
		task.Name = name
	}
	if upd.Description != nil {
		task.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Status != nil {
		status, ok := models.ParseTaskStatus(*upd.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		task.Status = status
	}
	if upd.DueDate != nil {
		due, err := ParseDueDate(*upd.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
	}
	if upd.Fee != nil {
		if err := validation.ValidateFee(upd.Fee); err != nil {
			return nil, err
		}
		task.Fee = upd.Fee
	}

	if err := s.taskRepo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateStatus sets only the status of a task
func (s *TaskService) UpdateStatus(ctx context.Context, user *models.User, id, status string) (*models.Task, error) {
	parsed, ok := models.ParseTaskStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	task, err := s.GetTask(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.UpdateTaskStatus(ctx, id, parsed); err != nil {
		return nil, err
	}
	task.Status = parsed
	return task, nil
}

// CompleteTask marks a task Completed
func (s *TaskService) CompleteTask(ctx context.Context, user *models.User, id string) (*models.Task, error) {
	return s.UpdateStatus(ctx, user, id, string(models.StatusCompleted))
}

// DeleteTask removes a task of the caller's family
func (s *TaskService) DeleteTask(ctx context.Context, user *models.User, id string) error {
	if _, err := s.GetTask(ctx, user, id); err != nil {
		return err
	}
	return s.taskRepo.DeleteTask(ctx, id)
}
