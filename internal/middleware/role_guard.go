package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/jwt"
	"drone-fleet/internal/pkg/apperrors"
)

// RoleGuard admits requests whose role is one of allowed.
func RoleGuard(allowed ...jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := jwt.Role(c.GetString("role"))
		if !slices.Contains(allowed, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, apperrors.ErrorResponse{
				Error: apperrors.ErrorBody{
					Code:    domainerrors.ErrForbidden,
					Message: "insufficient permissions",
				},
			})
			return
		}

		c.Next()
	}
}
