// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/models"
	"tasktracker/internal/storage"
)

// Clock is a manually advanced time source.
type Clock struct {
	t time.Time
}

// NewClock starts at a fixed instant.
func NewClock() *Clock {
	return &Clock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
}

// Now advances the clock by one second on every call so writes never tie.
func (c *Clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// Factory builds a fresh, empty store driven by clock.
type Factory func(t *testing.T, clock *Clock) storage.Store

// Run executes the conformance suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"ProjectWithoutTasksHasZeroProgress", testZeroProgress},
		{"CreateProjectAddsOneOwner", testOwnerMembership},
		{"GetProjectNotFound", testGetProjectNotFound},
		{"ProgressFollowsCompletion", testProgressFollowsCompletion},
		{"CompletionIsIdempotent", testCompletionIdempotent},
		{"SetTaskCompletionNotFound", testSetCompletionNotFound},
		{"CreateTaskUnknownProject", testCreateTaskUnknownProject},
		{"TaskOrdering", testTaskOrdering},
		{"TaskAssignee", testTaskAssignee},
		{"EmptyTaskList", testEmptyTaskList},
		{"ProjectsOrderedByUpdate", testProjectsOrderedByUpdate},
		{"MembersOfNewProject", testMembersOfNewProject},
		{"AddMemberUpsertsRole", testAddMemberUpsertsRole},
		{"AddMemberUnknownProject", testAddMemberUnknownProject},
		{"SeedDemo", testSeedDemo},
		{"SeedDemoWithOtherOwner", testSeedDemoWithOtherOwner},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := factory(t, NewClock())
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func createProject(t *testing.T, s storage.Store, name string) int64 {
	t.Helper()
	id, err := s.CreateProject(context.Background(), models.NewProject{Name: name, Status: models.StatusActive}, 1)
	require.NoError(t, err)
	return id
}

func createTask(t *testing.T, s storage.Store, projectID int64, title string, due *models.Date) int64 {
	t.Helper()
	id, err := s.CreateTask(context.Background(), models.NewTask{
		ProjectID: projectID,
		Title:     title,
		Priority:  models.PriorityMedium,
		DueDate:   due,
	})
	require.NoError(t, err)
	return id
}

func date(t *testing.T, raw string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return &d
}

func testZeroProgress(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "Empty")

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Progress)
	assert.Equal(t, "Empty", p.Name)
	assert.Equal(t, models.StatusActive, p.Status)

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Progress)
}

func testOwnerMembership(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "Owned")

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.MemberCount)

	members, err := s.ListMembers(ctx, id)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, int64(1), members[0].ID)
	assert.Equal(t, models.RoleOwner, members[0].Role)
	assert.Equal(t, "John Doe", members[0].Name)
}

func testGetProjectNotFound(t *testing.T, s storage.Store) {
	_, err := s.GetProject(context.Background(), 4242)
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
	assert.NotErrorIs(t, err, storage.ErrStorage)
}

func testProgressFollowsCompletion(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "Website Redesign")
	first := createTask(t, s, id, "Design homepage", date(t, "2026-10-21"))

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Progress)
	assert.Equal(t, 1, p.MemberCount)

	projectID, err := s.SetTaskCompletion(ctx, first, true)
	require.NoError(t, err)
	assert.Equal(t, id, projectID)

	p, err = s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)

	createTask(t, s, id, "Second", nil)
	p, err = s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Progress)

	createTask(t, s, id, "Third", nil)
	p, err = s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 33, p.Progress)
}

func testCompletionIdempotent(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "Idempotent")
	taskID := createTask(t, s, id, "Toggle me", nil)

	for i := 0; i < 2; i++ {
		_, err := s.SetTaskCompletion(ctx, taskID, true)
		require.NoError(t, err)
	}
	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.True(t, task.Completed)

	_, err = s.SetTaskCompletion(ctx, taskID, false)
	require.NoError(t, err)
	task, err = s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.False(t, task.Completed)
}

func testSetCompletionNotFound(t *testing.T, s storage.Store) {
	_, err := s.SetTaskCompletion(context.Background(), 999, true)
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))

	_, err = s.GetTask(context.Background(), 999)
	assert.True(t, storage.IsNotFound(err))
}

func testCreateTaskUnknownProject(t *testing.T, s storage.Store) {
	_, err := s.CreateTask(context.Background(), models.NewTask{ProjectID: 77, Title: "Orphan", Priority: models.PriorityLow})
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))

	tasks, err := s.ListTasks(context.Background(), 77)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func testTaskOrdering(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "Ordering")

	late := createTask(t, s, id, "late", date(t, "2026-12-01"))
	undated := createTask(t, s, id, "undated", nil)
	soon := createTask(t, s, id, "soon", date(t, "2026-10-20"))
	doneSoon := createTask(t, s, id, "done soon", date(t, "2026-10-18"))
	doneLate := createTask(t, s, id, "done late", date(t, "2026-11-01"))

	for _, taskID := range []int64{doneLate, doneSoon} {
		_, err := s.SetTaskCompletion(ctx, taskID, true)
		require.NoError(t, err)
	}

	tasks, err := s.ListTasks(ctx, id)
	require.NoError(t, err)
	got := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		got = append(got, task.ID)
	}
	assert.Equal(t, []int64{soon, late, undated, doneSoon, doneLate}, got)

	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2026-10-20", tasks[0].DueDate.String())
	assert.Nil(t, tasks[2].DueDate)
	assert.Equal(t, models.PriorityMedium, tasks[0].Priority)
	assert.Equal(t, id, tasks[0].ProjectID)
}

func testTaskAssignee(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "Assigned")

	jane := int64(2)
	ghost := int64(404)
	withAssignee, err := s.CreateTask(ctx, models.NewTask{ProjectID: id, Title: "With", Priority: models.PriorityHigh, AssigneeID: &jane})
	require.NoError(t, err)
	withGhost, err := s.CreateTask(ctx, models.NewTask{ProjectID: id, Title: "Ghost", Priority: models.PriorityLow, AssigneeID: &ghost})
	require.NoError(t, err)

	task, err := s.GetTask(ctx, withAssignee)
	require.NoError(t, err)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "Jane Smith", task.Assignee.Name)
	assert.Equal(t, models.PriorityHigh, task.Priority)

	task, err = s.GetTask(ctx, withGhost)
	require.NoError(t, err)
	assert.Nil(t, task.Assignee)
}

func testEmptyTaskList(t *testing.T, s storage.Store) {
	id := createProject(t, s, "No tasks")
	tasks, err := s.ListTasks(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func testProjectsOrderedByUpdate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first := createProject(t, s, "first")
	second := createProject(t, s, "second")

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)

	createTask(t, s, first, "bump", nil)
	list, err = s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, list[0].ID)
	assert.True(t, list[0].UpdatedAt.After(list[1].UpdatedAt))
}

func testMembersOfNewProject(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a, err := s.CreateProject(ctx, models.NewProject{Name: "a", Status: models.StatusPlanning}, 3)
	require.NoError(t, err)

	members, err := s.ListMembers(ctx, a)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Bob Johnson", members[0].Name)

	members, err = s.ListMembers(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func memberRoles(t *testing.T, s storage.Store, projectID int64) []string {
	t.Helper()
	members, err := s.ListMembers(context.Background(), projectID)
	require.NoError(t, err)
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, string(m.Role)+":"+m.Name)
	}
	return out
}

func testAddMemberUpsertsRole(t *testing.T, s storage.Store) {
	ctx := context.Background()
	id := createProject(t, s, "team")

	require.NoError(t, s.AddMember(ctx, id, 3, models.RoleMember))
	require.NoError(t, s.AddMember(ctx, id, 2, models.RoleMember))
	assert.Equal(t, []string{"member:Bob Johnson", "member:Jane Smith", "owner:John Doe"}, memberRoles(t, s, id))

	require.NoError(t, s.AddMember(ctx, id, 2, models.RoleAdmin))
	assert.Equal(t, []string{"admin:Jane Smith", "member:Bob Johnson", "owner:John Doe"}, memberRoles(t, s, id))

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.MemberCount)
}

func testAddMemberUnknownProject(t *testing.T, s storage.Store) {
	err := s.AddMember(context.Background(), 404, 2, models.RoleMember)
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}

func testSeedDemoWithOtherOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, storage.SeedDemo(ctx, s, 2, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, projects)
	for _, p := range projects {
		assert.Equal(t, 2, p.MemberCount, p.Name)
		assert.Equal(t, []string{"member:Bob Johnson", "owner:Jane Smith"}, memberRoles(t, s, p.ID))
	}
}

func testSeedDemo(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	require.NoError(t, storage.SeedDemo(ctx, s, 1, now))
	require.NoError(t, storage.SeedDemo(ctx, s, 1, now))

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)

	byName := map[string]models.Project{}
	for _, p := range projects {
		byName[p.Name] = p
	}
	assert.Equal(t, 33, byName["Website Redesign"].Progress)
	assert.Equal(t, 0, byName["Mobile App Development"].Progress)
	assert.Equal(t, 50, byName["Marketing Campaign"].Progress)
	assert.Equal(t, models.StatusOnHold, byName["Marketing Campaign"].Status)

	for _, p := range projects {
		assert.Equal(t, 3, p.MemberCount, p.Name)
		assert.Equal(t, []string{"admin:Jane Smith", "member:Bob Johnson", "owner:John Doe"}, memberRoles(t, s, p.ID))
	}
}
