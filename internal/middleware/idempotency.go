package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

type idempotencyStore interface {
	Check(ctx context.Context, scope, key string) ([]byte, bool, error)
	Set(ctx context.Context, scope, key string, response []byte) error
}

// responseRecorder tees the response body so it can be stored.
type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the caller and the route, and only 2xx responses are
// stored. A store failure lets the request through.
func Idempotency(store idempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		scope := c.GetString("sub") + ":" + c.Request.Method + ":" + c.FullPath()
		ctx := c.Request.Context()

		cached, found, err := store.Check(ctx, scope, key)
		if err != nil {
			slog.ErrorContext(ctx, "idempotency check failed",
				slog.String("error", err.Error()),
			)
			c.Next()
			return
		}

		if found {
			c.Header("Idempotent-Replayed", "true")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}

		rec := &responseRecorder{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			if err := store.Set(ctx, scope, key, rec.body.Bytes()); err != nil {
				slog.ErrorContext(ctx, "idempotency store failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
