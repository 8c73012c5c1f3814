package middleware

import (
	"time"

	"streamgate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Gin context keys handlers fill in so the request span carries
// admission details.
const (
	ContextRejectionReason = "rejection_reason"
	ContextSessionID       = "trace_session_id"
)

// TracingMiddleware traces every request and annotates the span with
// the admission outcome: the rejection reason on denied requests, the
// session id on granted ones.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath())
		defer span.End()

		span.SetAttributes(
			attribute.String("http.scheme", c.Request.URL.Scheme),
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.response_size", int64(c.Writer.Size())),
			attribute.Int64("http.duration_ms", duration.Milliseconds()),
			attribute.String("request.id", c.GetString("request_id")),
		)

		if reason := c.GetString(ContextRejectionReason); reason != "" {
			span.SetAttributes(tracing.ReasonKey.String(reason))
		}
		if sessionID := c.GetString(ContextSessionID); sessionID != "" {
			span.SetAttributes(tracing.SessionIDKey.String(sessionID))
		}

		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
