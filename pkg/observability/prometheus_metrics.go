package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetricsClient implements MetricsClient using Prometheus.
// Each client owns its registry so several servers can coexist in one process.
type PrometheusMetricsClient struct {
	registry *prometheus.Registry

	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	dbOperations  *prometheus.CounterVec
	dbDuration    *prometheus.HistogramVec
	cacheOps      *prometheus.CounterVec
	cacheDuration *prometheus.HistogramVec
}

// NewPrometheusMetricsClient creates a new Prometheus metrics client
func NewPrometheusMetricsClient(namespace string) *PrometheusMetricsClient {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &PrometheusMetricsClient{
		registry: registry,
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests",
		}, []string{"method", "endpoint", "status"}),
		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		dbOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total database operations",
		}, []string{"operation", "table", "status"}),
		dbDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Database operation duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "table"}),
		cacheOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total cache operations",
		}, []string{"operation", "result"}),
		cacheDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_operation_duration_seconds",
			Help:      "Cache operation duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// RecordAPIOperation records an API request
func (c *PrometheusMetricsClient) RecordAPIOperation(method, endpoint string, statusCode int, duration time.Duration) {
	c.apiRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	c.apiDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDatabaseOperation records a database operation
func (c *PrometheusMetricsClient) RecordDatabaseOperation(operation, table string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.dbOperations.WithLabelValues(operation, table, status).Inc()
	c.dbDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordCacheOperation records a cache operation
func (c *PrometheusMetricsClient) RecordCacheOperation(operation string, hit bool, duration time.Duration) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheOps.WithLabelValues(operation, result).Inc()
	c.cacheDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Registry returns the underlying registry
func (c *PrometheusMetricsClient) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the Prometheus exposition handler for this client's registry
func (c *PrometheusMetricsClient) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Close implements MetricsClient
func (c *PrometheusMetricsClient) Close() error {
	return nil
}
