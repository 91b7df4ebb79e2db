package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsClient_RecordAPIOperation(t *testing.T) {
	client := NewPrometheusMetricsClient("tasks")

	client.RecordAPIOperation("GET", "/api/task/:id", 200, 10*time.Millisecond)
	client.RecordAPIOperation("GET", "/api/task/:id", 200, 20*time.Millisecond)
	client.RecordAPIOperation("GET", "/api/task/:id", 404, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(client.apiRequests.WithLabelValues("GET", "/api/task/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(client.apiRequests.WithLabelValues("GET", "/api/task/:id", "404")))
}

func TestPrometheusMetricsClient_RecordDatabaseAndCache(t *testing.T) {
	client := NewPrometheusMetricsClient("tasks")

	client.RecordDatabaseOperation("select", "tasks", nil, time.Millisecond)
	client.RecordDatabaseOperation("select", "tasks", errors.New("down"), time.Millisecond)
	client.RecordCacheOperation("get", true, time.Millisecond)
	client.RecordCacheOperation("get", false, time.Millisecond)
	client.RecordCacheOperation("get", false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(client.dbOperations.WithLabelValues("select", "tasks", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(client.dbOperations.WithLabelValues("select", "tasks", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(client.cacheOps.WithLabelValues("get", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(client.cacheOps.WithLabelValues("get", "miss")))
}

func TestPrometheusMetricsClient_SeparateRegistries(t *testing.T) {
	// Two clients with the same namespace must not collide
	a := NewPrometheusMetricsClient("tasks")
	b := NewPrometheusMetricsClient("tasks")

	a.RecordAPIOperation("POST", "/api/task", 201, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.apiRequests.WithLabelValues("POST", "/api/task", "201")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.apiRequests.WithLabelValues("POST", "/api/task", "201")))
}

func TestPrometheusMetricsClient_Handler(t *testing.T) {
	client := NewPrometheusMetricsClient("tasks")
	client.RecordAPIOperation("DELETE", "/api/task/:id", 204, time.Millisecond)

	rec := httptest.NewRecorder()
	client.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tasks_api_requests_total{endpoint="/api/task/:id",method="DELETE",status="204"} 1`)
}

func TestNewMetricsClient_Disabled(t *testing.T) {
	client := NewMetricsClient(MetricsConfig{Enabled: false})
	_, ok := client.(*NoOpMetricsClient)
	assert.True(t, ok)

	rec := httptest.NewRecorder()
	client.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, client.Close())
}
