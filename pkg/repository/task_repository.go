// Package repository contains the SQL and cache-backed task stores.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	taskrepo "github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/database"
	"github.com/developer-mesh/task-manager/pkg/models"
	"github.com/developer-mesh/task-manager/pkg/observability"
)

// Queries use ? placeholders and are rebound per driver
const (
	selectAllTasksQuery = `SELECT id, title, description, completed FROM tasks ORDER BY id`
	selectTaskByIDQuery = `SELECT id, title, description, completed FROM tasks WHERE id = ?`
	existsTaskByIDQuery = `SELECT COUNT(1) FROM tasks WHERE id = ?`
	deleteTaskByIDQuery = `DELETE FROM tasks WHERE id = ?`
	insertTaskQuery     = `INSERT INTO tasks (title, description, completed) VALUES (?, ?, ?) RETURNING id`
	upsertTaskQuery     = `INSERT INTO tasks (id, title, description, completed) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			completed = excluded.completed`
)

// TaskRepositoryOption configures the SQL task repository
type TaskRepositoryOption func(*taskRepository)

// WithMetrics records every query on the given metrics client
func WithMetrics(metrics observability.MetricsClient) TaskRepositoryOption {
	return func(r *taskRepository) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// taskRepository is the sqlx implementation, usable with PostgreSQL and SQLite
type taskRepository struct {
	db      *sqlx.DB
	metrics observability.MetricsClient
}

// NewTaskRepository creates a new SQL task repository
func NewTaskRepository(db *sqlx.DB, opts ...TaskRepositoryOption) taskrepo.TaskRepository {
	r := &taskRepository{
		db:      db,
		metrics: observability.NewNoOpMetricsClient(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindAll retrieves all tasks
func (r *taskRepository) FindAll(ctx context.Context) (tasks []*models.Task, err error) {
	ctx, done := r.observe(ctx, "find_all", 0)
	defer func() { done(err) }()

	tasks = []*models.Task{}
	if err = r.db.SelectContext(ctx, &tasks, selectAllTasksQuery); err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	return tasks, nil
}

// Save inserts or upserts a task
func (r *taskRepository) Save(ctx context.Context, task *models.Task) (saved *models.Task, err error) {
	if task == nil {
		return nil, errors.New("task cannot be nil")
	}

	ctx, done := r.observe(ctx, "save", task.ID)
	defer func() { done(err) }()

	saved = &models.Task{}
	*saved = *task

	if task.ID == 0 {
		var id int64
		err = r.db.QueryRowxContext(ctx, r.db.Rebind(insertTaskQuery),
			task.Title, task.Description, task.Completed).Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to insert task")
		}
		saved.ID = id
		return saved, nil
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(upsertTaskQuery),
		task.ID, task.Title, task.Description, task.Completed)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to save task %d", task.ID)
	}
	return saved, nil
}

// FindByID retrieves a task by id
func (r *taskRepository) FindByID(ctx context.Context, id int64) (task *models.Task, err error) {
	ctx, done := r.observe(ctx, "find_by_id", id)
	defer func() { done(err) }()

	task = &models.Task{}
	err = r.db.GetContext(ctx, task, r.db.Rebind(selectTaskByIDQuery), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskrepo.ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get task %d", id)
	}
	return task, nil
}

// ExistsByID reports whether a task with the given id is stored
func (r *taskRepository) ExistsByID(ctx context.Context, id int64) (exists bool, err error) {
	ctx, done := r.observe(ctx, "exists_by_id", id)
	defer func() { done(err) }()

	var count int
	if err = r.db.GetContext(ctx, &count, r.db.Rebind(existsTaskByIDQuery), id); err != nil {
		return false, errors.Wrapf(err, "failed to check task %d", id)
	}
	return count > 0, nil
}

// DeleteByID removes a task. Deleting a missing id is not an error.
func (r *taskRepository) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, done := r.observe(ctx, "delete_by_id", id)
	defer func() { done(err) }()

	if _, err = r.db.ExecContext(ctx, r.db.Rebind(deleteTaskByIDQuery), id); err != nil {
		return errors.Wrapf(err, "failed to delete task %d", id)
	}
	return nil
}

// observe opens a span for the query and returns a callback that closes it
// and records the query duration. ErrNotFound is not counted as a failure.
func (r *taskRepository) observe(ctx context.Context, operation string, id int64) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		observability.TaskOperationAttributeKey.String(operation),
		attribute.String("db.system", r.db.DriverName()),
	}
	if id != 0 {
		attrs = append(attrs, observability.TaskIDAttributeKey.Int64(id))
	}

	ctx, span := observability.StartSpan(ctx, "repository.tasks."+operation, attrs...)
	start := time.Now()

	return ctx, func(err error) {
		recordErr := err
		if errors.Is(err, taskrepo.ErrNotFound) {
			recordErr = nil
		}
		r.metrics.RecordDatabaseOperation(operation, database.TasksTable, recordErr, time.Since(start))
		endSpan(span, recordErr)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
