package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"pm/internal/models"
	"pm/internal/storage/sqlite"
)

const taskViewSelect = `SELECT t.id, t.title, t.description, t.project_id, t.status, t.created_at, t.updated_at,
        p.name AS project_name
    FROM tasks t
    LEFT JOIN projects p ON t.project_id = p.id`

// Repository exposes typed project and task operations over a Store.
type Repository struct {
	store  *sqlite.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces the clock used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds a repository on an open store.
func New(store *sqlite.Store, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Repository{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateProject inserts a project under name exactly as given and returns its
// id. A duplicate name yields models.ErrConstraint.
func (r *Repository) CreateProject(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: project name must not be empty", models.ErrValidation)
	}

	res, err := r.store.Exec(ctx, `INSERT INTO projects(name, created_at) VALUES(?, ?)`, name, r.now())
	if err != nil {
		return 0, fmt.Errorf("insert project %q: %w", name, err)
	}
	r.logger.Debug("project created", slog.Int64("id", res.LastInsertID), slog.String("name", name))
	return res.LastInsertID, nil
}

// GetProject looks a project up by exact name.
func (r *Repository) GetProject(ctx context.Context, name string) (models.Project, error) {
	set, err := r.store.Query(ctx, `SELECT id, name, created_at FROM projects WHERE name = ?`, name)
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if set.Len() == 0 {
		return models.Project{}, fmt.Errorf("project '%s' %w", name, models.ErrNotFound)
	}
	return projectFromRow(set.Rows[0])
}

// GetProjectByID looks a project up by id.
func (r *Repository) GetProjectByID(ctx context.Context, id int64) (models.Project, error) {
	set, err := r.store.Query(ctx, `SELECT id, name, created_at FROM projects WHERE id = ?`, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if set.Len() == 0 {
		return models.Project{}, fmt.Errorf("project %d %w", id, models.ErrNotFound)
	}
	return projectFromRow(set.Rows[0])
}

// ListProjects returns all projects, newest first.
func (r *Repository) ListProjects(ctx context.Context) ([]models.Project, error) {
	set, err := r.store.Query(ctx, `SELECT id, name, created_at FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]models.Project, 0, set.Len())
	for _, row := range set.Rows {
		p, err := projectFromRow(row)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// CreateTask inserts a task with status todo and returns its id.
func (r *Repository) CreateTask(ctx context.Context, title string, projectID *int64, description string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("%w: task title must not be empty", models.ErrValidation)
	}

	now := r.now()
	res, err := r.store.Exec(ctx,
		`INSERT INTO tasks(title, project_id, description, status, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)`,
		title, nullableID(projectID), nullableText(description), string(models.StatusTodo), now, now)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	r.logger.Debug("task created", slog.Int64("id", res.LastInsertID))
	return res.LastInsertID, nil
}

// GetTask returns a task with its project name.
func (r *Repository) GetTask(ctx context.Context, id int64) (models.TaskView, error) {
	set, err := r.store.Query(ctx, taskViewSelect+` WHERE t.id = ?`, id)
	if err != nil {
		return models.TaskView{}, fmt.Errorf("get task: %w", err)
	}
	if set.Len() == 0 {
		return models.TaskView{}, fmt.Errorf("task %d %w", id, models.ErrNotFound)
	}
	return taskViewFromRow(set.Rows[0])
}

// ListTasks returns tasks matching the filter, newest first.
func (r *Repository) ListTasks(ctx context.Context, filter TaskFilter) ([]models.TaskView, error) {
	var where conditions
	if filter.ProjectID != nil {
		where.add("t.project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		where.add("t.status = ?", string(*filter.Status))
	}

	set, err := r.store.Query(ctx, taskViewSelect+where.where()+` ORDER BY t.created_at DESC, t.id DESC`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]models.TaskView, 0, set.Len())
	for _, row := range set.Rows {
		t, err := taskViewFromRow(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateTaskStatus sets the status and refreshes updated_at. It reports
// whether a row was changed.
func (r *Repository) UpdateTaskStatus(ctx context.Context, id int64, status models.Status) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}

	var set assignments
	set.set("status", string(status))
	set.set("updated_at", r.now())
	return r.update(ctx, id, &set)
}

// UpdateTask applies only the supplied fields and refreshes updated_at.
// An empty update is a no-op and returns false.
func (r *Repository) UpdateTask(ctx context.Context, id int64, u TaskUpdate) (bool, error) {
	if u.Empty() {
		return false, nil
	}

	var set assignments
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return false, fmt.Errorf("%w: task title must not be empty", models.ErrValidation)
		}
		set.set("title", title)
	}
	if u.Description != nil {
		set.set("description", nullableText(*u.Description))
	}
	if u.ProjectID != nil {
		set.set("project_id", *u.ProjectID)
	}
	set.set("updated_at", r.now())
	return r.update(ctx, id, &set)
}

func (r *Repository) update(ctx context.Context, id int64, set *assignments) (bool, error) {
	if set.empty() {
		return false, nil
	}
	stmt, args := set.statement("tasks", id)
	res, err := r.store.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("update task %d: %w", id, err)
	}
	return res.RowsAffected > 0, nil
}

// DeleteTask removes a task and reports whether it existed.
func (r *Repository) DeleteTask(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	return res.RowsAffected > 0, nil
}

// PurgeAll deletes every task and then every project.
func (r *Repository) PurgeAll(ctx context.Context) error {
	if err := r.store.ExecBatch(ctx, `DELETE FROM tasks`, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	r.logger.Debug("database purged")
	return nil
}

func projectFromRow(row sqlite.Row) (models.Project, error) {
	rr := row.Reader()
	p := models.Project{
		ID:        rr.Int64("id"),
		Name:      rr.String("name"),
		CreatedAt: rr.Time("created_at"),
	}
	if err := rr.Err(); err != nil {
		return models.Project{}, fmt.Errorf("%w: read project: %w", models.ErrStorage, err)
	}
	return p, nil
}

func taskViewFromRow(row sqlite.Row) (models.TaskView, error) {
	rr := row.Reader()
	t := models.TaskView{
		Task: models.Task{
			ID:          rr.Int64("id"),
			Title:       rr.String("title"),
			Description: rr.String("description"),
			ProjectID:   rr.OptionalInt64("project_id"),
			Status:      models.Status(rr.String("status")),
			CreatedAt:   rr.Time("created_at"),
			UpdatedAt:   rr.Time("updated_at"),
		},
		ProjectName: rr.String("project_name"),
	}
	if err := rr.Err(); err != nil {
		return models.TaskView{}, fmt.Errorf("%w: read task: %w", models.ErrStorage, err)
	}
	return t, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
