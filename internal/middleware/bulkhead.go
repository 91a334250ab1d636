package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"drone-fleet/internal/pkg/apperrors"
)

// Bulkhead caps the requests in flight through one route group. Excess
// requests are shed with 503 instead of queueing.
func Bulkhead(name string, maxConcurrent int) gin.HandlerFunc {
	sem := make(chan struct{}, maxConcurrent)

	return func(c *gin.Context) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			c.Next()
		default:
			slog.WarnContext(c.Request.Context(), "bulkhead full",
				slog.String("pool", name),
				slog.Int("capacity", maxConcurrent),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apperrors.ErrorResponse{
				Error: apperrors.ErrorBody{
					Code:    "SERVICE_UNAVAILABLE",
					Message: "server is at capacity, please try again later",
				},
			})
		}
	}
}
