package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/models"
	"tasktracker/internal/service"
	"tasktracker/internal/storage"
	"tasktracker/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, store storage.Store, opts Options) *Server {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	svc := service.New(store, service.WithLogger(quietLogger()))
	return New(svc, quietLogger(), opts)
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rec := do(t, srv, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEmptyCollectionsAreArrays(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rec := do(t, srv, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/projects/5/tasks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/projects/5/members", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateProject(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rec := do(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "Website Redesign", "description": "new look"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[models.Project](t, rec)
	assert.Equal(t, "Website Redesign", p.Name)
	assert.Equal(t, models.StatusActive, p.Status)
	assert.Equal(t, 1, p.MemberCount)
	assert.Equal(t, 0, p.Progress)

	raw := decode[map[string]any](t, rec)
	assert.Contains(t, raw, "memberCount")
	assert.Contains(t, raw, "updatedAt")

	rec = do(t, srv, http.MethodGet, "/api/projects/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects/1/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]models.Member](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleOwner, members[0].Role)
}

func TestCreateProjectRejectsMissingName(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	for _, body := range []any{map[string]string{"description": "no name"}, map[string]string{"name": "  "}, "{not json", nil} {
		rec := do(t, srv, http.MethodPost, "/api/projects", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "error")
	}

	rec := do(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "x", "status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetProjectErrors(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rec := do(t, srv, http.MethodGet, "/api/projects/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"project 99 not found"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/projects/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects/-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTask(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "p"}).Code)

	rec := do(t, srv, http.MethodPost, "/api/projects/1/tasks", `{"title":"Design homepage","priority":"HIGH","dueDate":"2026-10-21","assigneeId":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[models.Task](t, rec)
	assert.Equal(t, "Design homepage", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.False(t, task.Completed)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, int64(2), task.Assignee.ID)

	rec = do(t, srv, http.MethodPost, "/api/projects/1/tasks", `{"title":"Plain","assigneeId":null}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	raw := decode[map[string]any](t, rec)
	assert.Equal(t, "medium", raw["priority"])
	assert.Nil(t, raw["dueDate"])
	assert.NotContains(t, raw, "assignee")
	assert.Equal(t, false, raw["completed"])
}

func TestCreateTaskErrors(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "p"}).Code)

	rec := do(t, srv, http.MethodPost, "/api/projects/1/tasks", map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/projects/1/tasks", `{"title":"x","assigneeId":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/projects/1/tasks", map[string]string{"title": "x", "dueDate": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/projects/42/tasks", map[string]string{"title": "orphan"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects/1/tasks", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSetTaskCompletion(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "p"}).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/projects/1/tasks", map[string]string{"title": "t"}).Code)

	for i := 0; i < 2; i++ {
		rec := do(t, srv, http.MethodPatch, "/api/tasks/1", map[string]bool{"completed": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, decode[models.Task](t, rec).Completed)
	}

	rec := do(t, srv, http.MethodGet, "/api/tasks/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Task](t, rec).Completed)

	rec = do(t, srv, http.MethodPatch, "/api/tasks/404", map[string]bool{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/tasks/1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPatch, "/api/tasks/1", `{"completed":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/tasks/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarioProgressOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	due := time.Now().AddDate(0, 0, 5).Format(models.DateLayout)

	rec := do(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "Website Redesign", "status": "active"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decode[models.Project](t, rec)

	rec = do(t, srv, http.MethodPost, "/api/projects/1/tasks", map[string]string{"title": "Design homepage", "priority": "high", "dueDate": due})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[models.Task](t, rec)

	list := decode[[]models.Project](t, do(t, srv, http.MethodGet, "/api/projects", nil))
	require.Len(t, list, 1)
	assert.Equal(t, project.ID, list[0].ID)
	assert.Equal(t, 0, list[0].Progress)
	assert.Equal(t, 1, list[0].MemberCount)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPatch, "/api/tasks/1", map[string]bool{"completed": true}).Code)
	list = decode[[]models.Project](t, do(t, srv, http.MethodGet, "/api/projects", nil))
	assert.Equal(t, 100, list[0].Progress)

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/projects/1/tasks", map[string]string{"title": "Second"}).Code)
	list = decode[[]models.Project](t, do(t, srv, http.MethodGet, "/api/projects", nil))
	assert.Equal(t, 50, list[0].Progress)

	tasks := decode[[]models.Task](t, do(t, srv, http.MethodGet, "/api/projects/1/tasks", nil))
	require.Len(t, tasks, 2)
	assert.Equal(t, "Second", tasks[0].Title)
	assert.Equal(t, task.ID, tasks[1].ID)
	assert.True(t, tasks[1].Completed)
}

type brokenStore struct {
	storage.Store
}

func (brokenStore) ListProjects(context.Context) ([]models.Project, error) {
	return nil, storage.Failed("list projects", errors.New("dial tcp: connection refused"))
}

func TestStorageFailureIs500(t *testing.T) {
	srv := newTestServer(t, brokenStore{Store: memory.New()}, Options{})
	rec := do(t, srv, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestRequestIDAndCORS(t *testing.T) {
	srv := newTestServer(t, nil, Options{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	id := "3f1c2a5e-8d4b-4e6f-9a7b-2c1d0e9f8a7b"
	req = httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set(requestIDHeader, id)
	rec = httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestUnknownAPIRoute(t *testing.T) {
	srv := newTestServer(t, nil, Options{})
	rec := do(t, srv, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"endpoint not found"}`, rec.Body.String())
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>tracker</html>"), 0o644))
	srv := newTestServer(t, nil, Options{StaticDir: dir})

	rec := do(t, srv, http.MethodGet, "/projects/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tracker")

	rec = do(t, srv, http.MethodGet, "/api/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
