package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	taskrepo "github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/cache"
	"github.com/developer-mesh/task-manager/pkg/models"
	"github.com/developer-mesh/task-manager/pkg/observability"
)

// DefaultCacheTTL is used when a non-positive TTL is passed to NewCachedTaskRepository
const DefaultCacheTTL = 10 * time.Minute

// CachedTaskRepository decorates a TaskRepository with a read-through cache
// for single-task lookups. Cache failures are logged and never surface to callers.
// Ids whose cached copy could not be invalidated bypass the cache until an
// eviction succeeds, so a failed eviction never resurfaces a stale task.
type CachedTaskRepository struct {
	inner   taskrepo.TaskRepository
	cache   cache.Cache
	ttl     time.Duration
	logger  observability.Logger
	metrics observability.MetricsClient

	mu    sync.Mutex
	stale map[int64]struct{}
}

// NewCachedTaskRepository wraps inner with the given cache
func NewCachedTaskRepository(inner taskrepo.TaskRepository, c cache.Cache, ttl time.Duration, logger observability.Logger) *CachedTaskRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &CachedTaskRepository{
		inner:   inner,
		cache:   c,
		ttl:     ttl,
		logger:  logger.WithPrefix("task-cache"),
		metrics: observability.NewNoOpMetricsClient(),
		stale:   make(map[int64]struct{}),
	}
}

// WithMetrics records cache hits and misses on the given client
func (r *CachedTaskRepository) WithMetrics(metrics observability.MetricsClient) *CachedTaskRepository {
	if metrics != nil {
		r.metrics = metrics
	}
	return r
}

func taskCacheKey(id int64) string {
	return fmt.Sprintf("task:%d", id)
}

// FindAll is not cached
func (r *CachedTaskRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	return r.inner.FindAll(ctx)
}

// Save evicts the cached copy, writes through to the store and caches the result
func (r *CachedTaskRepository) Save(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID != 0 {
		r.invalidate(ctx, task.ID)
	}

	saved, err := r.inner.Save(ctx, task)
	if err != nil {
		return nil, err
	}
	if r.usable(ctx, saved.ID) {
		r.store(ctx, saved)
	}
	return saved, nil
}

// FindByID serves from the cache when possible and populates it on a miss
func (r *CachedTaskRepository) FindByID(ctx context.Context, id int64) (*models.Task, error) {
	if !r.usable(ctx, id) {
		return r.inner.FindByID(ctx, id)
	}

	if task, ok := r.lookup(ctx, id); ok {
		return task, nil
	}

	task, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, task)
	return task, nil
}

// ExistsByID always asks the store; a cached entry is not proof the row still exists
func (r *CachedTaskRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.inner.ExistsByID(ctx, id)
}

// DeleteByID evicts the task, removes it from the store, then evicts again
// to drop any copy a concurrent read cached in between.
func (r *CachedTaskRepository) DeleteByID(ctx context.Context, id int64) error {
	r.invalidate(ctx, id)
	if err := r.inner.DeleteByID(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedTaskRepository) lookup(ctx context.Context, id int64) (*models.Task, bool) {
	start := time.Now()
	var task models.Task
	err := r.cache.Get(ctx, taskCacheKey(id), &task)
	switch {
	case err == nil:
		r.metrics.RecordCacheOperation("get", true, time.Since(start))
		return &task, true
	case errors.Is(err, cache.ErrNotFound):
		r.metrics.RecordCacheOperation("get", false, time.Since(start))
	default:
		r.logger.Warn("Task cache read failed", map[string]any{
			"task_id": id,
			"error":   err.Error(),
		})
	}
	return nil, false
}

func (r *CachedTaskRepository) store(ctx context.Context, task *models.Task) {
	if err := r.cache.Set(ctx, taskCacheKey(task.ID), task, r.ttl); err != nil {
		r.logger.Warn("Failed to cache task", map[string]any{
			"task_id": task.ID,
			"error":   err.Error(),
		})
		r.invalidate(ctx, task.ID)
	}
}

// invalidate evicts the cached task. On failure the id is marked stale and
// reads bypass the cache for it until a later eviction succeeds.
func (r *CachedTaskRepository) invalidate(ctx context.Context, id int64) bool {
	if err := r.cache.Delete(ctx, taskCacheKey(id)); err != nil {
		r.logger.Warn("Failed to evict task from cache", map[string]any{
			"task_id": id,
			"error":   err.Error(),
		})
		r.mu.Lock()
		r.stale[id] = struct{}{}
		r.mu.Unlock()
		return false
	}

	r.mu.Lock()
	delete(r.stale, id)
	r.mu.Unlock()
	return true
}

// usable reports whether the cache may be consulted for id, retrying the
// eviction of a stale entry first.
func (r *CachedTaskRepository) usable(ctx context.Context, id int64) bool {
	r.mu.Lock()
	_, stale := r.stale[id]
	r.mu.Unlock()
	if !stale {
		return true
	}
	return r.invalidate(ctx, id)
}
