package observability

import (
	"net/http"
	"time"
)

// NoOpMetricsClient discards all metrics
type NoOpMetricsClient struct{}

// NewNoOpMetricsClient creates a metrics client that records nothing
func NewNoOpMetricsClient() MetricsClient {
	return &NoOpMetricsClient{}
}

func (n *NoOpMetricsClient) RecordAPIOperation(method, endpoint string, statusCode int, duration time.Duration) {
}

func (n *NoOpMetricsClient) RecordDatabaseOperation(operation, table string, err error, duration time.Duration) {
}

func (n *NoOpMetricsClient) RecordCacheOperation(operation string, hit bool, duration time.Duration) {
}

// Handler reports that metrics are disabled
func (n *NoOpMetricsClient) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics disabled", http.StatusNotFound)
	})
}

func (n *NoOpMetricsClient) Close() error { return nil }

// NewMetricsClient returns a Prometheus client when metrics are enabled and a no-op client otherwise
func NewMetricsClient(cfg MetricsConfig) MetricsClient {
	if !cfg.Enabled {
		return NewNoOpMetricsClient()
	}
	return NewPrometheusMetricsClient(cfg.Namespace)
}
