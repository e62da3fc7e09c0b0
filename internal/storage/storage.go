// Package storage defines the data-access contract shared by the memory and
// relational backends.
package storage

import (
	"context"

	"tasktracker/internal/models"
)

// Store is implemented by every backend. Inputs reaching a Store are already
// validated; reads on an unknown project return an empty slice.
type Store interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	ListTasks(ctx context.Context, projectID int64) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (models.Task, error)
	ListMembers(ctx context.Context, projectID int64) ([]models.Member, error)

	// CreateProject inserts the project and one owner membership for ownerID.
	CreateProject(ctx context.Context, p models.NewProject, ownerID int64) (int64, error)
	// CreateTask inserts an incomplete task and touches the parent project.
	CreateTask(ctx context.Context, t models.NewTask) (int64, error)
	// SetTaskCompletion stores the flag and returns the owning project id.
	SetTaskCompletion(ctx context.Context, id int64, completed bool) (int64, error)
	// AddMember grants userID a role on the project, replacing any role the
	// user already holds there.
	AddMember(ctx context.Context, projectID, userID int64, role models.Role) error

	Close() error
}
