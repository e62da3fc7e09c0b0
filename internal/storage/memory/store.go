// Package memory is the in-process Store backend. All collections live on the
// Store value; nothing is kept in package-level state.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/models"
	"tasktracker/internal/storage"
)

type projectRow struct {
	id          int64
	name        string
	description string
	status      models.Status
	createdAt   time.Time
	updatedAt   time.Time
}

type taskRow struct {
	id          int64
	projectID   int64
	title       string
	description string
	priority    models.Priority
	dueDate     *models.Date
	assigneeID  *int64
	completed   bool
	createdAt   time.Time
	updatedAt   time.Time
}

type membershipRow struct {
	projectID int64
	userID    int64
	role      models.Role
	createdAt time.Time
}

// Store keeps projects, tasks, memberships and users in memory.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	users       map[int64]models.User
	projects    map[int64]*projectRow
	tasks       map[int64]*taskRow
	memberships []membershipRow
	nextProject int64
	nextTask    int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUsers replaces the default users table.
func WithUsers(users []models.User) Option {
	return func(s *Store) {
		s.users = make(map[int64]models.User, len(users))
		for _, u := range users {
			s.users[u.ID] = u
		}
	}
}

// New returns an empty store seeded with models.DefaultUsers.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		projects: make(map[int64]*projectRow),
		tasks:    make(map[int64]*taskRow),
	}
	WithUsers(models.DefaultUsers)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// ListProjects returns projects most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Failed("list projects", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, s.projectLocked(p))
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].UpdatedAt.Equal(projects[j].UpdatedAt) {
			return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
		}
		return projects[i].ID > projects[j].ID
	})
	return projects, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	if err := ctx.Err(); err != nil {
		return models.Project{}, storage.Failed("get project", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, storage.NotFound("project", id)
	}
	return s.projectLocked(p), nil
}

func (s *Store) projectLocked(p *projectRow) models.Project {
	var total, done int
	for _, t := range s.tasks {
		if t.projectID != p.id {
			continue
		}
		total++
		if t.completed {
			done++
		}
	}
	members := make(map[int64]struct{})
	for _, m := range s.memberships {
		if m.projectID == p.id {
			members[m.userID] = struct{}{}
		}
	}
	return models.Project{
		ID:          p.id,
		Name:        p.name,
		Description: p.description,
		Status:      p.status,
		Progress:    models.Progress(done, total),
		MemberCount: len(members),
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.updatedAt,
	}
}

// ListTasks returns incomplete tasks first, then by due date with undated tasks last.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Failed("list tasks", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0)
	for _, t := range s.tasks {
		if t.projectID == projectID {
			tasks = append(tasks, s.taskLocked(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(b.DueDate.Time):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.ID < b.ID
	})
	return tasks, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	if err := ctx.Err(); err != nil {
		return models.Task{}, storage.Failed("get task", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, storage.NotFound("task", id)
	}
	return s.taskLocked(t), nil
}

func (s *Store) taskLocked(t *taskRow) models.Task {
	task := models.Task{
		ID:          t.id,
		ProjectID:   t.projectID,
		Title:       t.title,
		Description: t.description,
		Completed:   t.completed,
		Priority:    t.priority,
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
	if t.dueDate != nil {
		due := *t.dueDate
		task.DueDate = &due
	}
	if t.assigneeID != nil {
		if u, ok := s.users[*t.assigneeID]; ok {
			task.Assignee = &models.Assignee{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
		}
	}
	return task
}

// ListMembers returns members sorted by role, then name.
func (s *Store) ListMembers(ctx context.Context, projectID int64) ([]models.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Failed("list members", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]models.Member, 0)
	for _, m := range s.memberships {
		if m.projectID != projectID {
			continue
		}
		u, ok := s.users[m.userID]
		if !ok {
			continue
		}
		members = append(members, models.Member{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Role: m.role})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Role != members[j].Role {
			return members[i].Role < members[j].Role
		}
		return strings.Compare(members[i].Name, members[j].Name) < 0
	})
	return members, nil
}

// CreateProject stores the project and its owner membership.
func (s *Store) CreateProject(ctx context.Context, p models.NewProject, ownerID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.Failed("insert project", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	s.nextProject++
	id := s.nextProject
	s.projects[id] = &projectRow{
		id:          id,
		name:        p.Name,
		description: p.Description,
		status:      p.Status,
		createdAt:   now,
		updatedAt:   now,
	}
	s.memberships = append(s.memberships, membershipRow{projectID: id, userID: ownerID, role: models.RoleOwner, createdAt: now})
	return id, nil
}

// CreateTask inserts an incomplete task under an existing project.
func (s *Store) CreateTask(ctx context.Context, t models.NewTask) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.Failed("insert task", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[t.ProjectID]
	if !ok {
		return 0, storage.NotFound("project", t.ProjectID)
	}

	now := s.timestamp()
	s.nextTask++
	id := s.nextTask
	row := &taskRow{
		id:          id,
		projectID:   t.ProjectID,
		title:       t.Title,
		description: t.Description,
		priority:    t.Priority,
		createdAt:   now,
		updatedAt:   now,
	}
	if t.DueDate != nil {
		due := *t.DueDate
		row.dueDate = &due
	}
	if t.AssigneeID != nil {
		assignee := *t.AssigneeID
		row.assigneeID = &assignee
	}
	s.tasks[id] = row
	project.updatedAt = now
	return id, nil
}

// SetTaskCompletion flips the completion flag and touches task and project.
func (s *Store) SetTaskCompletion(ctx context.Context, id int64, completed bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.Failed("update task", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, storage.NotFound("task", id)
	}
	now := s.timestamp()
	t.completed = completed
	t.updatedAt = now
	if p, ok := s.projects[t.projectID]; ok {
		p.updatedAt = now
	}
	return t.projectID, nil
}

// AddMember inserts or updates a membership on an existing project.
func (s *Store) AddMember(ctx context.Context, projectID, userID int64, role models.Role) error {
	if err := ctx.Err(); err != nil {
		return storage.Failed("add member", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return storage.NotFound("project", projectID)
	}
	for i := range s.memberships {
		if s.memberships[i].projectID == projectID && s.memberships[i].userID == userID {
			s.memberships[i].role = role
			return nil
		}
	}
	s.memberships = append(s.memberships, membershipRow{projectID: projectID, userID: userID, role: role, createdAt: s.timestamp()})
	return nil
}
