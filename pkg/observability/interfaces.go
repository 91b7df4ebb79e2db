// Package observability provides logging, metrics, and tracing for the
// task manager service.
package observability

import (
	"net/http"
	"time"
)

// MetricsConfig holds the configuration for metrics
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig holds the configuration for OTLP trace export
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds the configuration for logging
type LoggingConfig struct {
	// Level is the minimum log level to emit
	Level string `mapstructure:"level"`
}

// LogLevel defines log message severity
type LogLevel string

// Log levels
const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// Logger defines the interface for logging
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Fatal(msg string, fields map[string]any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)

	WithPrefix(prefix string) Logger
	With(fields map[string]any) Logger
}

// MetricsClient defines the interface for metrics collection
type MetricsClient interface {
	RecordAPIOperation(method, endpoint string, statusCode int, duration time.Duration)
	RecordDatabaseOperation(operation, table string, err error, duration time.Duration)
	RecordCacheOperation(operation string, hit bool, duration time.Duration)

	// Handler exposes the collected metrics over HTTP
	Handler() http.Handler

	Close() error
}
