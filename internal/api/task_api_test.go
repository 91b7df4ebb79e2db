package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	api "github.com/developer-mesh/task-manager/internal/api"
	"github.com/developer-mesh/task-manager/internal/repository"
	"github.com/developer-mesh/task-manager/pkg/models"
	"github.com/developer-mesh/task-manager/pkg/observability"
)

// Helper to set up Gin and handler
func setupTaskAPI(repo repository.TaskRepository) *gin.Engine {
	r := gin.New()
	a := api.NewTaskAPI(repo, observability.NewNoopLogger())
	a.RegisterRoutes(r.Group("/api"))
	return r
}

func doRequest(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func TestGetAllTasks_Success(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindAll", mock.Anything).Return([]*models.Task{
		{ID: 1, Title: "A"},
		{ID: 2, Title: "B", Completed: true},
	}, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/getAll", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 2)
	assert.Equal(t, "B", tasks[1].Title)
	repo.AssertExpectations(t)
}

func TestGetAllTasks_EmptyIsArray(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindAll", mock.Anything).Return(nil, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/getAll", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetAllTasks_StoreError(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindAll", mock.Anything).Return(nil, errors.New("db down"))

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/getAll", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to list tasks"}`, w.Body.String())
}

func TestCreateTask_Success(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(task *models.Task) bool {
		return task.ID == 0 && task.Title == "A" && task.Description == "B" && !task.Completed
	})).Return(&models.Task{ID: 1, Title: "A", Description: "B"}, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodPost, "/api/task",
		[]byte(`{"title":"A","description":"B","completed":false}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1,"title":"A","description":"B","completed":false}`, w.Body.String())
	repo.AssertExpectations(t)
}

func TestCreateTask_IgnoresClientID(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(task *models.Task) bool {
		return task.ID == 0
	})).Return(&models.Task{ID: 3, Title: "A"}, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodPost, "/api/task", []byte(`{"id":99,"title":"A"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(3), decodeTask(t, w).ID)
	repo.AssertExpectations(t)
}

func TestCreateTask_BadRequest(t *testing.T) {
	repo := new(repository.MockTaskRepository)

	for name, body := range map[string]string{
		"malformed":  `{"title":`,
		"wrong type": `{"completed":"yes"}`,
		"empty":      ``,
	} {
		t.Run(name, func(t *testing.T) {
			w := doRequest(setupTaskAPI(repo), http.MethodPost, "/api/task", []byte(body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid request body")
		})
	}
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateTask_StoreError(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed"))

	w := doRequest(setupTaskAPI(repo), http.MethodPost, "/api/task", []byte(`{"title":"A"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetTask_Success(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(7)).Return(&models.Task{ID: 7, Title: "T", Completed: true}, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Task{ID: 7, Title: "T", Completed: true}, decodeTask(t, w))
}

func TestGetTask_NotFound(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(404)).Return(nil, repository.ErrNotFound)

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/404", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetTask_InvalidID(t *testing.T) {
	repo := new(repository.MockTaskRepository)

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid task id"}`, w.Body.String())
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestGetTask_StoreError(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(1)).Return(nil, errors.New("timeout"))

	w := doRequest(setupTaskAPI(repo), http.MethodGet, "/api/task/1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUpdateTask_Success(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(5)).
		Return(&models.Task{ID: 5, Title: "old", Description: "old"}, nil)
	repo.On("Save", mock.Anything, &models.Task{ID: 5, Title: "X", Description: "Y", Completed: true}).
		Return(&models.Task{ID: 5, Title: "X", Description: "Y", Completed: true}, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodPut, "/api/task/5",
		[]byte(`{"title":"X","description":"Y","completed":true}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":5,"title":"X","description":"Y","completed":true}`, w.Body.String())
	repo.AssertExpectations(t)
}

func TestUpdateTask_BodyIDIsIgnored(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(5)).Return(&models.Task{ID: 5}, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(task *models.Task) bool {
		return task.ID == 5
	})).Return(&models.Task{ID: 5, Title: "X"}, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodPut, "/api/task/5", []byte(`{"id":77,"title":"X"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), decodeTask(t, w).ID)
	repo.AssertExpectations(t)
}

func TestUpdateTask_NotFound(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound)

	w := doRequest(setupTaskAPI(repo), http.MethodPut, "/api/task/9", []byte(`{"title":"X"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateTask_BadRequest(t *testing.T) {
	repo := new(repository.MockTaskRepository)

	w := doRequest(setupTaskAPI(repo), http.MethodPut, "/api/task/x", []byte(`{"title":"X"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(setupTaskAPI(repo), http.MethodPut, "/api/task/1", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestUpdateTask_SaveError(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("FindByID", mock.Anything, int64(5)).Return(&models.Task{ID: 5}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("write failed"))

	w := doRequest(setupTaskAPI(repo), http.MethodPut, "/api/task/5", []byte(`{"title":"X"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to update task"}`, w.Body.String())
}

func TestDeleteTask_Success(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("ExistsByID", mock.Anything, int64(3)).Return(true, nil)
	repo.On("DeleteByID", mock.Anything, int64(3)).Return(nil)

	w := doRequest(setupTaskAPI(repo), http.MethodDelete, "/api/task/3", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	repo.AssertExpectations(t)
}

func TestDeleteTask_NotFound(t *testing.T) {
	repo := new(repository.MockTaskRepository)
	repo.On("ExistsByID", mock.Anything, int64(3)).Return(false, nil)

	w := doRequest(setupTaskAPI(repo), http.MethodDelete, "/api/task/3", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
	repo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestDeleteTask_Errors(t *testing.T) {
	t.Run("exists check fails", func(t *testing.T) {
		repo := new(repository.MockTaskRepository)
		repo.On("ExistsByID", mock.Anything, int64(3)).Return(false, errors.New("timeout"))

		w := doRequest(setupTaskAPI(repo), http.MethodDelete, "/api/task/3", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("delete fails", func(t *testing.T) {
		repo := new(repository.MockTaskRepository)
		repo.On("ExistsByID", mock.Anything, int64(3)).Return(true, nil)
		repo.On("DeleteByID", mock.Anything, int64(3)).Return(errors.New("locked"))

		w := doRequest(setupTaskAPI(repo), http.MethodDelete, "/api/task/3", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		repo := new(repository.MockTaskRepository)

		w := doRequest(setupTaskAPI(repo), http.MethodDelete, "/api/task/1.5", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
