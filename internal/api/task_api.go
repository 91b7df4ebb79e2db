package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/models"
	"github.com/developer-mesh/task-manager/pkg/observability"
)

// TaskAPI handles the /task resource
type TaskAPI struct {
	repo   repository.TaskRepository
	logger observability.Logger
}

// NewTaskAPI creates a new TaskAPI
func NewTaskAPI(repo repository.TaskRepository, logger observability.Logger) *TaskAPI {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &TaskAPI{
		repo:   repo,
		logger: logger.WithPrefix("task-api"),
	}
}

// RegisterRoutes registers task endpoints under <router>/task
func (a *TaskAPI) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/task")
	tasks.GET("/getAll", a.getAll)
	tasks.POST("", a.create)
	tasks.GET("/:id", a.get)
	tasks.PUT("/:id", a.update)
	tasks.DELETE("/:id", a.delete)
}

func (a *TaskAPI) getAll(c *gin.Context) {
	tasks, err := a.repo.FindAll(c.Request.Context())
	if err != nil {
		a.internalError(c, "failed to list tasks", err, 0)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (a *TaskAPI) create(c *gin.Context) {
	var task models.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	// The store assigns ids
	task.ID = 0

	saved, err := a.repo.Save(c.Request.Context(), &task)
	if err != nil {
		a.internalError(c, "failed to create task", err, 0)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (a *TaskAPI) get(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := a.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		a.internalError(c, "failed to get task", err, id)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (a *TaskAPI) update(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var update models.TaskUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := a.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		a.internalError(c, "failed to get task", err, id)
		return
	}

	merged := models.ApplyUpdate(*existing, update)
	saved, err := a.repo.Save(ctx, &merged)
	if err != nil {
		a.internalError(c, "failed to update task", err, id)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (a *TaskAPI) delete(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	exists, err := a.repo.ExistsByID(ctx, id)
	if err != nil {
		a.internalError(c, "failed to check task", err, id)
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}

	if err := a.repo.DeleteByID(ctx, id); err != nil {
		a.internalError(c, "failed to delete task", err, id)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseTaskID writes a 400 response and returns false when the path id is not an integer
func parseTaskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

func (a *TaskAPI) internalError(c *gin.Context, msg string, err error, id int64) {
	_ = c.Error(err)

	fields := map[string]any{
		"error":  err.Error(),
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}
	if id != 0 {
		fields["task_id"] = id
	}
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		fields["request_id"] = requestID
	}
	a.logger.Error(msg, fields)

	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
