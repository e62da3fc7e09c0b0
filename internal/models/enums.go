package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive    Status = "active"
	StatusPlanning  Status = "planning"
	StatusOnHold    Status = "on hold"
	StatusCompleted Status = "completed"
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Role is a member's role inside a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

var (
	validStatuses   = []Status{StatusActive, StatusPlanning, StatusOnHold, StatusCompleted}
	validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}
	validRoles      = []Role{RoleOwner, RoleAdmin, RoleMember}
)

func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseStatus accepts any casing and "on_hold"/"on-hold" spellings.
func ParseStatus(raw string) (Status, error) {
	n := normalize(raw)
	for _, s := range validStatuses {
		if string(s) == n {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown project status %q", raw)
}

// ParsePriority accepts any casing.
func ParsePriority(raw string) (Priority, error) {
	n := normalize(raw)
	for _, p := range validPriorities {
		if string(p) == n {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown task priority %q", raw)
}

// ParseRole accepts any casing.
func ParseRole(raw string) (Role, error) {
	n := normalize(raw)
	for _, r := range validRoles {
		if string(r) == n {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown member role %q", raw)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
