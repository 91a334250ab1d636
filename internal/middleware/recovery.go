package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/pkg/apperrors"
)

// Recovery turns a panic into a 500 with the standard error body and marks
// the request span as failed. A panic after the handler has written is only
// logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := c.Request.Context()
			attrs := []any{
				slog.Any("panic", r),
				slog.String("method", c.Request.Method),
				slog.String("route", c.FullPath()),
				slog.String("sub", c.GetString("sub")),
				slog.String("stack", string(debug.Stack())),
			}
			span := trace.SpanFromContext(ctx)
			if sc := span.SpanContext(); sc.HasTraceID() {
				attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
			}
			span.AddEvent("panic recovered")
			slog.ErrorContext(ctx, "handler panicked", attrs...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.ErrorResponse{
				Error: apperrors.ErrorBody{
					Code:    domainerrors.ErrInternal,
					Message: "an unexpected error occurred",
				},
			})
		}()

		c.Next()
	}
}
