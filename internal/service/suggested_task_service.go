package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"familytasks/internal/database"
	"familytasks/internal/models"
	"familytasks/internal/repository"
	"familytasks/internal/validation"
)

//go:embed defaults/suggested_tasks.yaml
var defaultSuggestedTasks []byte

var ErrSuggestedTaskNotFound = errors.New("suggested task not found")

// suggestedTaskFile is the YAML layout for seeding suggested tasks
type suggestedTaskFile struct {
	SuggestedTasks []models.SuggestedTask `yaml:"suggested_tasks"`
}

// SuggestedTaskService manages task templates and their promotion
type SuggestedTaskService struct {
	db    *database.DB
	repo  *repository.SuggestedTaskRepository
	tasks *TaskService
	log   *logrus.Entry
}

// NewSuggestedTaskService creates a new suggested task service
func NewSuggestedTaskService(db *database.DB, repo *repository.SuggestedTaskRepository, tasks *TaskService, log *logrus.Entry) *SuggestedTaskService {
	return &SuggestedTaskService{db: db, repo: repo, tasks: tasks, log: log}
}

// ListSuggested returns every suggested task
func (s *SuggestedTaskService) ListSuggested(ctx context.Context) ([]models.SuggestedTask, error) {
	return s.repo.ListSuggestedTasks(ctx)
}

// CreateSuggested adds a new suggested task
func (s *SuggestedTaskService) CreateSuggested(ctx context.Context, name, description string, estimatedCost *float64) (*models.SuggestedTask, error) {
	st, err := newSuggestedTask(name, description, estimatedCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSuggestedTask(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func newSuggestedTask(name, description string, estimatedCost *float64) (*models.SuggestedTask, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateTaskName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateFee(estimatedCost); err != nil {
		return nil, err
	}
	return &models.SuggestedTask{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   strings.TrimSpace(description),
		EstimatedCost: estimatedCost,
		Status:        models.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Promote copies a suggested task into the caller's family. The fee is the
// estimated cost and the status starts at Pending.
func (s *SuggestedTaskService) Promote(ctx context.Context, user *models.User, id string) (*models.Task, error) {
	st, err := s.repo.GetSuggestedTaskByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggested task: %w", err)
	}
	if st == nil {
		return nil, ErrSuggestedTaskNotFound
	}
	return s.tasks.AddTask(ctx, user, TaskInput{
		Name:        st.Name,
		Description: st.Description,
		Status:      string(models.StatusPending),
		Fee:         st.EstimatedCost,
	})
}

// SeedDefaults loads the built-in suggested tasks when none exist yet
func (s *SuggestedTaskService) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.repo.CountSuggestedTasks(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	return s.ImportYAML(ctx, strings.NewReader(string(defaultSuggestedTasks)))
}

// ImportYAML adds every suggested task listed in r in one transaction
func (s *SuggestedTaskService) ImportYAML(ctx context.Context, r io.Reader) (int, error) {
	var file suggestedTaskFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("failed to parse suggested tasks: %w", err)
	}

	items := make([]*models.SuggestedTask, 0, len(file.SuggestedTasks))
	for i, entry := range file.SuggestedTasks {
		st, err := newSuggestedTask(entry.Name, entry.Description, entry.EstimatedCost)
		if err != nil {
			return 0, fmt.Errorf("suggested task %d: %w", i+1, err)
		}
		items = append(items, st)
	}

	err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
		repo := s.repo.WithTx(tx)
		for _, st := range items {
			if err := repo.CreateSuggestedTask(ctx, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.WithField("count", len(items)).Info("suggested tasks imported")
	return len(items), nil
}
