// Package relational implements storage.Store on database/sql for SQLite and MySQL.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tasktracker/internal/models"
	"tasktracker/internal/storage"
)

// Store wraps a SQL database and exposes the tracker queries.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Pool bounds the connection pool. Max caps open connections. With Min 0 idle
// connections are closed after idleTimeout; a positive Min keeps them open.
type Pool struct {
	Min int
	Max int
}

const (
	defaultIdleConns = 2
	idleTimeout      = 30 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for migration messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects with the dialect's driver, applies the schema and seeds the
// users table when it is empty.
func Open(ctx context.Context, d Dialect, dsn string, pool Pool, opts ...Option) (*Store, error) {
	conn, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}

	if d.SingleConn {
		conn.SetMaxOpenConns(1)
	} else {
		idle := defaultIdleConns
		if pool.Max > 0 {
			conn.SetMaxOpenConns(pool.Max)
			idle = pool.Max
		}
		conn.SetMaxIdleConns(max(idle, pool.Min))
		if pool.Min == 0 {
			conn.SetConnMaxIdleTime(idleTimeout)
		}
	}
	conn.SetConnMaxLifetime(0)

	s := &Store{
		db:      conn,
		dialect: d,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := s.seedUsers(ctx, models.DefaultUsers); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	s.logger.Debug("schema ready", slog.String("dialect", s.dialect.Name))
	return nil
}

func (s *Store) seedUsers(ctx context.Context, users []models.User) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, u := range users {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO users(id, name, email, avatar) VALUES(?, ?, ?, ?)`, u.ID, u.Name, u.Email, u.Avatar); err != nil {
			return fmt.Errorf("seed user %d: %w", u.ID, err)
		}
	}
	s.logger.Info("seeded users table", slog.Int("count", len(users)))
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

const projectColumns = `SELECT p.id, p.name, p.description, p.status, p.created_at, p.updated_at,
        (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
        (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.completed = 1),
        (SELECT COUNT(DISTINCT m.user_id) FROM project_members m WHERE m.project_id = p.id)
    FROM projects p`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p           models.Project
		status      string
		total, done int
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &status, &p.CreatedAt, &p.UpdatedAt, &total, &done, &p.MemberCount); err != nil {
		return models.Project{}, err
	}
	parsed, err := models.ParseStatus(status)
	if err != nil {
		return models.Project{}, err
	}
	p.Status = parsed
	p.Progress = models.Progress(done, total)
	return p, nil
}

// ListProjects retrieves all projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, projectColumns+` ORDER BY p.updated_at DESC, p.id DESC`)
	if err != nil {
		return nil, storage.Failed("list projects", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, storage.Failed("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failed("list projects", err)
	}
	return projects, nil
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, projectColumns+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, storage.NotFound("project", id)
	}
	if err != nil {
		return models.Project{}, storage.Failed("get project", err)
	}
	return p, nil
}

const taskColumns = `SELECT t.id, t.project_id, t.title, t.description, t.completed, t.priority, t.due_date,
        t.created_at, t.updated_at, u.id, u.name, u.avatar
    FROM tasks t LEFT JOIN users u ON u.id = t.assignee_id`

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t          models.Task
		completed  int64
		priority   string
		due        sql.NullTime
		assigneeID sql.NullInt64
		name       sql.NullString
		avatar     sql.NullString
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &completed, &priority, &due,
		&t.CreatedAt, &t.UpdatedAt, &assigneeID, &name, &avatar); err != nil {
		return models.Task{}, err
	}
	parsed, err := models.ParsePriority(priority)
	if err != nil {
		return models.Task{}, err
	}
	t.Priority = parsed
	t.Completed = completed != 0
	if due.Valid {
		d := models.NewDate(due.Time)
		t.DueDate = &d
	}
	if assigneeID.Valid {
		t.Assignee = &models.Assignee{ID: assigneeID.Int64, Name: name.String, Avatar: avatar.String}
	}
	return t, nil
}

// ListTasks returns a project's tasks: incomplete first, then soonest due, undated last.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskColumns+`
        WHERE t.project_id = ?
        ORDER BY t.completed ASC, t.due_date IS NULL, t.due_date ASC, t.id ASC`, projectID)
	if err != nil {
		return nil, storage.Failed("list tasks", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storage.Failed("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failed("list tasks", err)
	}
	return tasks, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskColumns+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, storage.NotFound("task", id)
	}
	if err != nil {
		return models.Task{}, storage.Failed("get task", err)
	}
	return t, nil
}

// ListMembers returns the project's members ordered by role, then name.
func (s *Store) ListMembers(ctx context.Context, projectID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.name, u.email, u.avatar, m.role
        FROM project_members m JOIN users u ON u.id = m.user_id
        WHERE m.project_id = ?
        ORDER BY m.role ASC, u.name ASC`, projectID)
	if err != nil {
		return nil, storage.Failed("list members", err)
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var (
			m    models.Member
			role string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Avatar, &role); err != nil {
			return nil, storage.Failed("scan member", err)
		}
		if m.Role, err = models.ParseRole(role); err != nil {
			return nil, storage.Failed("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failed("list members", err)
	}
	return members, nil
}

// CreateProject inserts the project and its owner membership in one transaction.
func (s *Store) CreateProject(ctx context.Context, p models.NewProject, ownerID int64) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `INSERT INTO projects(name, description, status, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
			p.Name, p.Description, string(p.Status), now, now)
		if err != nil {
			return storage.Failed("insert project", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return storage.Failed("project id", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_members(project_id, user_id, role, created_at) VALUES(?, ?, ?, ?)`,
			id, ownerID, string(models.RoleOwner), now); err != nil {
			return storage.Failed("insert owner membership", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateTask inserts an incomplete task and refreshes the project's updated_at.
func (s *Store) CreateTask(ctx context.Context, t models.NewTask) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		if err := touchProject(ctx, tx, t.ProjectID, now); err != nil {
			return err
		}

		var due, assignee any
		if t.DueDate != nil {
			due = t.DueDate.String()
		}
		if t.AssigneeID != nil {
			assignee = *t.AssigneeID
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id, title, description, priority, due_date, assignee_id, completed, created_at, updated_at)
            VALUES(?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			t.ProjectID, t.Title, t.Description, string(t.Priority), due, assignee, now, now)
		if err != nil {
			return storage.Failed("insert task", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return storage.Failed("task id", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetTaskCompletion stores the flag as 0/1 and touches task and project.
func (s *Store) SetTaskCompletion(ctx context.Context, id int64, completed bool) (int64, error) {
	var projectID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT project_id FROM tasks WHERE id = ?`, id).Scan(&projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotFound("task", id)
		}
		if err != nil {
			return storage.Failed("get task", err)
		}

		flag := 0
		if completed {
			flag = 1
		}
		now := s.timestamp()
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?`, flag, now, id); err != nil {
			return storage.Failed("update task", err)
		}
		return touchProject(ctx, tx, projectID, now)
	})
	if err != nil {
		return 0, err
	}
	return projectID, nil
}

// AddMember inserts the membership or updates the role of an existing one.
func (s *Store) AddMember(ctx context.Context, projectID, userID int64, role models.Role) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotFound("project", projectID)
		}
		if err != nil {
			return storage.Failed("get project", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE project_members SET role = ? WHERE project_id = ? AND user_id = ?`,
			string(role), projectID, userID)
		if err != nil {
			return storage.Failed("update membership", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return storage.Failed("update membership", err)
		}
		if affected > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_members(project_id, user_id, role, created_at) VALUES(?, ?, ?, ?)`,
			projectID, userID, string(role), s.timestamp()); err != nil {
			return storage.Failed("insert membership", err)
		}
		return nil
	})
}

func touchProject(ctx context.Context, tx *sql.Tx, projectID int64, now time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, now, projectID)
	if err != nil {
		return storage.Failed("touch project", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.Failed("touch project", err)
	}
	if affected == 0 {
		return storage.NotFound("project", projectID)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Failed("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storage.Failed("commit", err)
	}
	return nil
}
