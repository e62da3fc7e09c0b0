package relational

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/models"
	"tasktracker/internal/storage"
	"tasktracker/internal/storage/storagetest"
)

func openSQLite(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	dsn, err := SQLiteDSN(path)
	require.NoError(t, err)
	s, err := Open(context.Background(), SQLite, dsn, Pool{}, opts...)
	require.NoError(t, err)
	return s
}

func TestSQLiteConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock *storagetest.Clock) storage.Store {
		return openSQLite(t, filepath.Join(t.TempDir(), "data", "tracker.db"), WithClock(clock.Now))
	})
}

func TestCompletedPersistedAsInteger(t *testing.T) {
	s := openSQLite(t, filepath.Join(t.TempDir(), "tracker.db"))
	defer s.Close()
	ctx := context.Background()

	id, err := s.CreateProject(ctx, models.NewProject{Name: "ints", Status: models.StatusActive}, 1)
	require.NoError(t, err)
	taskID, err := s.CreateTask(ctx, models.NewTask{ProjectID: id, Title: "flag", Priority: models.PriorityLow})
	require.NoError(t, err)
	_, err = s.SetTaskCompletion(ctx, taskID, true)
	require.NoError(t, err)

	var raw int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT completed FROM tasks WHERE id = ?`, taskID).Scan(&raw))
	assert.Equal(t, 1, raw)
}

func TestListMembersOrderedByRoleThenName(t *testing.T) {
	s := openSQLite(t, filepath.Join(t.TempDir(), "tracker.db"))
	defer s.Close()
	ctx := context.Background()

	id, err := s.CreateProject(ctx, models.NewProject{Name: "team", Status: models.StatusActive}, 2)
	require.NoError(t, err)
	for _, userID := range []int64{3, 1} {
		require.NoError(t, s.AddMember(ctx, id, userID, models.RoleMember))
	}

	members, err := s.ListMembers(ctx, id)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Bob Johnson", members[0].Name)
	assert.Equal(t, "John Doe", members[1].Name)
	assert.Equal(t, "Jane Smith", members[2].Name)
	assert.Equal(t, models.RoleOwner, members[2].Role)
	assert.Equal(t, "jane@example.com", members[2].Email)

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.MemberCount)
}

func TestReopenKeepsDataAndUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	ctx := context.Background()

	s := openSQLite(t, path)
	id, err := s.CreateProject(ctx, models.NewProject{Name: "persisted", Description: "kept", Status: models.StatusCompleted}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openSQLite(t, path)
	defer s.Close()

	var users int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users))
	assert.Equal(t, len(models.DefaultUsers), users)

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kept", p.Description)
	assert.Equal(t, models.StatusCompleted, p.Status)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestPooledConnectionsAreReused(t *testing.T) {
	pooled := SQLite
	pooled.SingleConn = false
	dsn, err := SQLiteDSN(filepath.Join(t.TempDir(), "pooled.db"))
	require.NoError(t, err)
	s, err := Open(context.Background(), pooled, dsn, Pool{Min: 0, Max: 7})
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 20; i++ {
		_, err := s.ListProjects(context.Background())
		require.NoError(t, err)
	}
	stats := s.db.Stats()
	assert.Zero(t, stats.MaxIdleClosed)
	assert.GreaterOrEqual(t, stats.Idle, 1)
}

func TestSQLiteDSNRejectsEmptyPath(t *testing.T) {
	_, err := SQLiteDSN("")
	assert.Error(t, err)
}

func TestMySQLConfig(t *testing.T) {
	cfg := MySQLConfig("db.internal", 3307, "tracker", "secret", "task_management")
	dsn := cfg.FormatDSN()
	assert.Contains(t, dsn, "tracker:secret@tcp(db.internal:3307)/task_management")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
}
