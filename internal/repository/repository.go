// Package repository defines the storage contract the task API depends on.
package repository

import (
	"context"
	"errors"

	"github.com/developer-mesh/task-manager/pkg/models"
)

// ErrNotFound is returned when no task exists for the requested id
var ErrNotFound = errors.New("task not found")

// TaskRepository defines the persistence operations for tasks
type TaskRepository interface {
	// FindAll returns every stored task ordered by id
	FindAll(ctx context.Context) ([]*models.Task, error)

	// Save inserts the task when its ID is zero and upserts it by ID otherwise.
	// The returned task carries the store-assigned ID.
	Save(ctx context.Context, task *models.Task) (*models.Task, error)

	// FindByID returns ErrNotFound when the task does not exist
	FindByID(ctx context.Context, id int64) (*models.Task, error)

	ExistsByID(ctx context.Context, id int64) (bool, error)

	DeleteByID(ctx context.Context, id int64) error
}
