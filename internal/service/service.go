// Package service holds the query and mutation operations the HTTP layer calls.
// Mutations validate before writing and signal which views went stale.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tasktracker/internal/models"
	"tasktracker/internal/storage"
)

// DefaultOwnerID is the acting user until authentication exists.
const DefaultOwnerID int64 = 1

// Service wraps a storage.Store.
type Service struct {
	store   storage.Store
	reval   Revalidator
	ownerID int64
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRevalidator sets the refresh signal target.
func WithRevalidator(r Revalidator) Option {
	return func(s *Service) { s.reval = r }
}

// WithOwner sets the user recorded as owner of new projects.
func WithOwner(id int64) Option {
	return func(s *Service) { s.ownerID = id }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New builds a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		ownerID: DefaultOwnerID,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reval == nil {
		s.reval = LogRevalidator{Logger: s.logger}
	}
	return s
}

// ListProjects returns all projects, most recently updated first.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	return memoizeSlice(ctx, "projects", func() ([]models.Project, error) {
		return s.store.ListProjects(ctx)
	})
}

// GetProject returns one project or an error matching storage.ErrNotFound.
func (s *Service) GetProject(ctx context.Context, id int64) (models.Project, error) {
	return memoize(ctx, fmt.Sprintf("project/%d", id), func() (models.Project, error) {
		return s.store.GetProject(ctx, id)
	})
}

// ListTasks returns the tasks of a project, incomplete and soonest due first.
func (s *Service) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	return memoizeSlice(ctx, fmt.Sprintf("project/%d/tasks", projectID), func() ([]models.Task, error) {
		return s.store.ListTasks(ctx, projectID)
	})
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, id int64) (models.Task, error) {
	return memoize(ctx, fmt.Sprintf("task/%d", id), func() (models.Task, error) {
		return s.store.GetTask(ctx, id)
	})
}

// ListMembers returns the members of a project ordered by role, then name.
func (s *Service) ListMembers(ctx context.Context, projectID int64) ([]models.Member, error) {
	return memoizeSlice(ctx, fmt.Sprintf("project/%d/members", projectID), func() ([]models.Member, error) {
		return s.store.ListMembers(ctx, projectID)
	})
}

// ProjectInput is the raw create-project payload.
type ProjectInput struct {
	Name        string
	Description string
	Status      string
}

// TaskInput is the raw create-task payload.
type TaskInput struct {
	ProjectID   int64
	Title       string
	Description string
	Priority    string
	DueDate     string
	AssigneeID  *int64
}

// CreateProject validates input, stores the project with its owner and
// returns the stored project.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Project{}, storage.Invalidf("name is required")
	}
	status := models.StatusActive
	if strings.TrimSpace(in.Status) != "" {
		parsed, err := models.ParseStatus(in.Status)
		if err != nil {
			return models.Project{}, storage.Invalidf("%v", err)
		}
		status = parsed
	}

	id, err := s.store.CreateProject(ctx, models.NewProject{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
	}, s.ownerID)
	if err != nil {
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.logger.InfoContext(ctx, "project created", slog.Int64("project_id", id), slog.String("status", string(status)))
	s.refresh(ctx, listingPath, projectPath(id))

	return s.store.GetProject(ctx, id)
}

// CreateTask validates input, stores an incomplete task and returns it.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, storage.Invalidf("title is required")
	}
	if in.ProjectID <= 0 {
		return models.Task{}, storage.Invalidf("project id is required")
	}
	priority := models.PriorityMedium
	if strings.TrimSpace(in.Priority) != "" {
		parsed, err := models.ParsePriority(in.Priority)
		if err != nil {
			return models.Task{}, storage.Invalidf("%v", err)
		}
		priority = parsed
	}
	var due *models.Date
	if strings.TrimSpace(in.DueDate) != "" {
		parsed, err := models.ParseDate(in.DueDate)
		if err != nil {
			return models.Task{}, storage.Invalidf("%v", err)
		}
		due = &parsed
	}

	id, err := s.store.CreateTask(ctx, models.NewTask{
		ProjectID:   in.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		DueDate:     due,
		AssigneeID:  in.AssigneeID,
	})
	if err != nil {
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.InfoContext(ctx, "task created", slog.Int64("task_id", id), slog.Int64("project_id", in.ProjectID))
	s.refresh(ctx, listingPath, projectPath(in.ProjectID))

	return s.store.GetTask(ctx, id)
}

// SetTaskCompletion stores the completion flag and returns the updated task.
// Setting the current value again is a successful no-op.
func (s *Service) SetTaskCompletion(ctx context.Context, taskID int64, completed bool) (models.Task, error) {
	projectID, err := s.store.SetTaskCompletion(ctx, taskID, completed)
	if err != nil {
		return models.Task{}, fmt.Errorf("set task completion: %w", err)
	}
	s.logger.InfoContext(ctx, "task completion set", slog.Int64("task_id", taskID), slog.Bool("completed", completed))
	s.refresh(ctx, listingPath, projectPath(projectID))

	return s.store.GetTask(ctx, taskID)
}

func (s *Service) refresh(ctx context.Context, paths ...string) {
	invalidateRequestCache(ctx)
	s.reval.Revalidate(ctx, paths...)
}
