package observability

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

var levelOrder = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
	LogLevelFatal: 4,
}

// ParseLogLevel converts a configuration string into a LogLevel.
// Unknown values fall back to INFO.
func ParseLogLevel(level string) LogLevel {
	l := LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	if l == "WARNING" {
		return LogLevelWarn
	}
	if _, ok := levelOrder[l]; ok {
		return l
	}
	return LogLevelInfo
}

// StandardLogger is a logger implementation that uses the standard log package
type StandardLogger struct {
	prefix string
	level  LogLevel
	fields map[string]any
	exit   func(code int)
}

// NewLogger creates an INFO level logger for the named component
func NewLogger(prefix string) Logger {
	return NewStandardLogger(prefix)
}

// NewStandardLogger creates a new StandardLogger with the given prefix
func NewStandardLogger(prefix string) *StandardLogger {
	return &StandardLogger{
		prefix: prefix,
		level:  LogLevelInfo,
		exit:   os.Exit,
	}
}

// WithLevel returns a new logger with the specified log level
func (l *StandardLogger) WithLevel(level LogLevel) *StandardLogger {
	clone := l.clone()
	clone.level = level
	return clone
}

// Level returns the minimum level this logger emits
func (l *StandardLogger) Level() LogLevel {
	return l.level
}

func (l *StandardLogger) clone() *StandardLogger {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &StandardLogger{
		prefix: l.prefix,
		level:  l.level,
		fields: fields,
		exit:   l.exit,
	}
}

// Debug logs a debug message
func (l *StandardLogger) Debug(msg string, fields map[string]any) {
	l.log(LogLevelDebug, msg, fields)
}

// Info logs an info message
func (l *StandardLogger) Info(msg string, fields map[string]any) {
	l.log(LogLevelInfo, msg, fields)
}

// Warn logs a warning message
func (l *StandardLogger) Warn(msg string, fields map[string]any) {
	l.log(LogLevelWarn, msg, fields)
}

// Error logs an error message
func (l *StandardLogger) Error(msg string, fields map[string]any) {
	l.log(LogLevelError, msg, fields)
}

// Fatal logs a fatal message and exits
func (l *StandardLogger) Fatal(msg string, fields map[string]any) {
	l.log(LogLevelFatal, msg, fields)
}

// Debugf logs a formatted debug message
func (l *StandardLogger) Debugf(format string, args ...any) {
	l.log(LogLevelDebug, fmt.Sprintf(format, args...), nil)
}

// Infof logs a formatted info message
func (l *StandardLogger) Infof(format string, args ...any) {
	l.log(LogLevelInfo, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a formatted warning message
func (l *StandardLogger) Warnf(format string, args ...any) {
	l.log(LogLevelWarn, fmt.Sprintf(format, args...), nil)
}

// Errorf logs a formatted error message
func (l *StandardLogger) Errorf(format string, args ...any) {
	l.log(LogLevelError, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a formatted fatal message and exits
func (l *StandardLogger) Fatalf(format string, args ...any) {
	l.log(LogLevelFatal, fmt.Sprintf(format, args...), nil)
}

// WithPrefix returns a new logger with the given prefix
func (l *StandardLogger) WithPrefix(prefix string) Logger {
	clone := l.clone()
	clone.prefix = prefix
	return clone
}

// With returns a new logger that adds the given fields to every entry
func (l *StandardLogger) With(fields map[string]any) Logger {
	clone := l.clone()
	for k, v := range fields {
		clone.fields[k] = v
	}
	return clone
}

func (l *StandardLogger) enabled(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[l.level]
}

// formatFields renders fields as sorted key=value pairs
func (l *StandardLogger) formatFields(fields map[string]any) string {
	if len(l.fields) == 0 && len(fields) == 0 {
		return ""
	}

	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, merged[k])
	}
	return b.String()
}

func (l *StandardLogger) log(level LogLevel, msg string, fields map[string]any) {
	// Errors and fatals always log regardless of level
	if level != LogLevelError && level != LogLevelFatal && !l.enabled(level) {
		return
	}

	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	log.Printf("%s [%s] [%s] %s%s", timestamp, level, l.prefix, msg, l.formatFields(fields))

	if level == LogLevelFatal {
		l.exit(1)
	}
}

// NoopLogger is a logger that does nothing
type NoopLogger struct{}

// NewNoopLogger creates a new NoopLogger
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, fields map[string]any) {}
func (l *NoopLogger) Info(msg string, fields map[string]any)  {}
func (l *NoopLogger) Warn(msg string, fields map[string]any)  {}
func (l *NoopLogger) Error(msg string, fields map[string]any) {}
func (l *NoopLogger) Fatal(msg string, fields map[string]any) {}
func (l *NoopLogger) Debugf(format string, args ...any)       {}
func (l *NoopLogger) Infof(format string, args ...any)        {}
func (l *NoopLogger) Warnf(format string, args ...any)        {}
func (l *NoopLogger) Errorf(format string, args ...any)       {}
func (l *NoopLogger) Fatalf(format string, args ...any)       {}

// WithPrefix implements Logger.WithPrefix
func (l *NoopLogger) WithPrefix(prefix string) Logger {
	return l
}

// With implements Logger.With
func (l *NoopLogger) With(fields map[string]any) Logger {
	return l
}
