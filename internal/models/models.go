package models

import (
	"math"
	"time"
)

// Project groups tasks and members. Progress and MemberCount are derived by the store.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Task is a unit of work owned by exactly one project.
type Task struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"projectId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Priority    Priority  `json:"priority"`
	DueDate     *Date     `json:"dueDate"`
	Assignee    *Assignee `json:"assignee,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Assignee is the subset of a user shown on a task card.
type Assignee struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Member is a user together with its role in one project.
type Member struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Role   Role   `json:"role"`
}

// User is a row of the users table.
type User struct {
	ID     int64
	Name   string
	Email  string
	Avatar string
}

// NewProject carries already validated input for a project insert.
type NewProject struct {
	Name        string
	Description string
	Status      Status
}

// NewTask carries already validated input for a task insert.
type NewTask struct {
	ProjectID   int64
	Title       string
	Description string
	Priority    Priority
	DueDate     *Date
	AssigneeID  *int64
}

// Progress returns the rounded completion percentage, 0 for a project without tasks.
func Progress(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// DefaultUsers seeds the users table; id 1 doubles as the acting owner.
var DefaultUsers = []User{
	{ID: 1, Name: "John Doe", Email: "john@example.com", Avatar: "/placeholder.svg?height=40&width=40"},
	{ID: 2, Name: "Jane Smith", Email: "jane@example.com", Avatar: "/placeholder.svg?height=40&width=40"},
	{ID: 3, Name: "Bob Johnson", Email: "bob@example.com", Avatar: "/placeholder.svg?height=40&width=40"},
}
