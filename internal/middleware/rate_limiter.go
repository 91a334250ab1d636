package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"drone-fleet/internal/pkg/apperrors"
)

type rateLimiter interface {
	Allow(ctx context.Context, client string) (bool, error)
	Window() time.Duration
}

// RateLimit throttles per authenticated subject, or per client IP before
// Auth has run. Limiter errors fail open. Rejections carry Retry-After set
// to the limiter window.
func RateLimit(limiter rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || skipAuth[c.Request.URL.Path] {
			c.Next()
			return
		}
		client := rateKey(c)

		allowed, err := limiter.Allow(c.Request.Context(), client)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "rate limiter unavailable, allowing request",
				slog.String("client", client),
				slog.String("error", err.Error()),
			)
			c.Next()
			return
		}

		if !allowed {
			slog.WarnContext(c.Request.Context(), "rate limit exceeded",
				slog.String("client", client),
				slog.String("route", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limiter.Window().Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
				Error: apperrors.ErrorBody{
					Code:    "RATE_LIMITED",
					Message: "too many requests, please try again later",
				},
			})
			return
		}

		c.Next()
	}
}

// rateKey buckets by subject so operators behind one NAT do not share a quota.
func rateKey(c *gin.Context) string {
	if sub := c.GetString("sub"); sub != "" {
		return "sub:" + sub
	}
	return "ip:" + c.ClientIP()
}
