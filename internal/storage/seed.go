package storage

import (
	"context"
	"fmt"
	"time"

	"tasktracker/internal/models"
)

type demoTask struct {
	title, description string
	priority           models.Priority
	dueInDays          int
	assignee           int64
	completed          bool
}

type demoMember struct {
	userID int64
	role   models.Role
}

// demoMembers join every demo project next to its owner.
var demoMembers = []demoMember{
	{userID: 2, role: models.RoleAdmin},
	{userID: 3, role: models.RoleMember},
}

type demoProject struct {
	project models.NewProject
	tasks   []demoTask
}

var demoData = []demoProject{
	{
		project: models.NewProject{Name: "Website Redesign", Description: "Redesign the company website with modern UI/UX", Status: models.StatusActive},
		tasks: []demoTask{
			{"Design homepage", "Create wireframes and mockups for the new homepage", models.PriorityHigh, 5, 2, false},
			{"Implement responsive navigation", "Create a mobile-friendly navigation menu", models.PriorityMedium, -2, 1, true},
			{"Optimize images", "Compress and optimize all website images", models.PriorityLow, 10, 3, false},
		},
	},
	{
		project: models.NewProject{Name: "Mobile App Development", Description: "Create a new mobile app for our customers", Status: models.StatusPlanning},
		tasks: []demoTask{
			{"Create app architecture", "Design the overall architecture for the mobile app", models.PriorityHigh, 3, 2, false},
			{"Design authentication flow", "Create login and registration screens", models.PriorityMedium, 7, 1, false},
		},
	},
	{
		project: models.NewProject{Name: "Marketing Campaign", Description: "Q2 marketing campaign for new product launch", Status: models.StatusOnHold},
		tasks: []demoTask{
			{"Develop content strategy", "Plan content for the marketing campaign", models.PriorityHigh, -5, 3, true},
			{"Create social media assets", "Design graphics for social media posts", models.PriorityMedium, 4, 2, false},
		},
	},
}

// SeedDemo fills an empty store with the demo projects. A store that already
// holds projects is left untouched.
func SeedDemo(ctx context.Context, s Store, ownerID int64, now time.Time) error {
	existing, err := s.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, dp := range demoData {
		projectID, err := s.CreateProject(ctx, dp.project, ownerID)
		if err != nil {
			return fmt.Errorf("seed project %q: %w", dp.project.Name, err)
		}
		for _, dm := range demoMembers {
			if dm.userID == ownerID {
				continue
			}
			if err := s.AddMember(ctx, projectID, dm.userID, dm.role); err != nil {
				return fmt.Errorf("seed member %d: %w", dm.userID, err)
			}
		}
		for _, dt := range dp.tasks {
			due := models.NewDate(now.AddDate(0, 0, dt.dueInDays))
			assignee := dt.assignee
			taskID, err := s.CreateTask(ctx, models.NewTask{
				ProjectID:   projectID,
				Title:       dt.title,
				Description: dt.description,
				Priority:    dt.priority,
				DueDate:     &due,
				AssigneeID:  &assignee,
			})
			if err != nil {
				return fmt.Errorf("seed task %q: %w", dt.title, err)
			}
			if dt.completed {
				if _, err := s.SetTaskCompletion(ctx, taskID, true); err != nil {
					return fmt.Errorf("seed completion %q: %w", dt.title, err)
				}
			}
		}
	}
	return nil
}
