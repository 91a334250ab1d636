package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/jwt"
	"drone-fleet/internal/pkg/apperrors"
)

type tokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

var skipAuth = map[string]bool{
	"/health": true,
}

// Auth validates the bearer token and stores its subject and role on the
// context as "sub" and "role".
func Auth(validator tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipAuth[c.Request.URL.Path] {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			unauthorized(c, "invalid authorization format")
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "auth failed",
				slog.String("path", c.Request.URL.Path),
				slog.String("ip", c.ClientIP()),
				slog.String("error", err.Error()),
			)
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set("sub", claims.Sub)
		c.Set("role", string(claims.Role))
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.ErrorResponse{
		Error: apperrors.ErrorBody{
			Code:    domainerrors.ErrUnauthorized,
			Message: msg,
		},
	})
}
