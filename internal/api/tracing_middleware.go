package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/developer-mesh/task-manager/pkg/observability"
)

// TracingMiddleware starts a span per request, continuing any incoming trace context
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := observability.Propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx, span := observability.StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, path),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", path),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		)
		defer span.End()

		if id := c.Param("id"); id != "" {
			span.SetAttributes(attribute.String(string(observability.TaskIDAttributeKey), id))
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("http.response_size", c.Writer.Size()),
		)

		if len(c.Errors) > 0 {
			for _, err := range c.Errors {
				span.RecordError(err.Err)
			}
			span.SetStatus(codes.Error, c.Errors.Last().Error())
		} else if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
