package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/models"
	"tasktracker/internal/storage"
	"tasktracker/internal/storage/storagetest"
)

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock *storagetest.Clock) storage.Store {
		return New(WithClock(clock.Now))
	})
}

func TestListMembersOrderedByRoleThenName(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, err := s.CreateProject(ctx, models.NewProject{Name: "team", Status: models.StatusActive}, 2)
	require.NoError(t, err)

	require.NoError(t, s.AddMember(ctx, id, 3, models.RoleMember))
	require.NoError(t, s.AddMember(ctx, id, 1, models.RoleMember))
	require.NoError(t, s.AddMember(ctx, id, 99, models.RoleAdmin))

	members, err := s.ListMembers(ctx, id)
	require.NoError(t, err)
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, string(m.Role)+":"+m.Name)
	}
	// user 99 has no users row and is skipped, as the inner join would.
	assert.Equal(t, []string{"member:Bob Johnson", "member:John Doe", "owner:Jane Smith"}, names)

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, p.MemberCount)
}

func TestWithUsersReplacesDefaults(t *testing.T) {
	s := New(WithUsers([]models.User{{ID: 1, Name: "Solo", Email: "solo@example.com"}}))
	id, err := s.CreateProject(context.Background(), models.NewProject{Name: "p", Status: models.StatusActive}, 1)
	require.NoError(t, err)

	members, err := s.ListMembers(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Solo", members[0].Name)
}

func TestConcurrentCompletionIsLastWriteWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, err := s.CreateProject(ctx, models.NewProject{Name: "race", Status: models.StatusActive}, 1)
	require.NoError(t, err)
	taskID, err := s.CreateTask(ctx, models.NewTask{ProjectID: id, Title: "contended", Priority: models.PriorityLow})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(completed bool) {
			defer wg.Done()
			_, err := s.SetTaskCompletion(ctx, taskID, completed)
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	_, err = s.SetTaskCompletion(ctx, taskID, true)
	require.NoError(t, err)
	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)
}

func TestCanceledContextFails(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListProjects(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReturnedTasksAreCopies(t *testing.T) {
	s := New(WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }))
	ctx := context.Background()
	id, err := s.CreateProject(ctx, models.NewProject{Name: "p", Status: models.StatusActive}, 1)
	require.NoError(t, err)
	due := models.NewDate(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	taskID, err := s.CreateTask(ctx, models.NewTask{ProjectID: id, Title: "t", Priority: models.PriorityLow, DueDate: &due})
	require.NoError(t, err)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	*task.DueDate = models.NewDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	again, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", again.DueDate.String())
}
