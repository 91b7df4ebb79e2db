package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans created by this service
const TracerName = "github.com/developer-mesh/task-manager"

// Attribute keys for task operations
const (
	TaskIDAttributeKey        = attribute.Key("task.id")
	TaskOperationAttributeKey = attribute.Key("task.operation")
)

// Propagator is the propagator used to extract incoming trace context
var Propagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// StartSpan starts a span with the globally registered tracer provider.
// Without a configured provider the span is a no-op.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}
