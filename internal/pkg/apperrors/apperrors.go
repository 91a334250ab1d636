package apperrors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "drone-fleet/internal/errors"
)

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var codeToStatus = map[string]int{
	domainerrors.ErrNotFound:           http.StatusNotFound,
	domainerrors.ErrInvalidTransition:  http.StatusConflict,
	domainerrors.ErrDroneUnavailable:   http.StatusConflict,
	domainerrors.ErrOrderNotAssignable: http.StatusConflict,
	domainerrors.ErrUnauthorized:       http.StatusUnauthorized,
	domainerrors.ErrForbidden:          http.StatusForbidden,
	domainerrors.ErrConflict:           http.StatusConflict,
	domainerrors.ErrValidation:         http.StatusBadRequest,
	domainerrors.ErrInternal:           http.StatusInternalServerError,
}

// StatusFor returns the HTTP status a domain error code maps to.
func StatusFor(code string) int {
	if status, ok := codeToStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func ToHTTPError(c *gin.Context, err error) {
	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) {
		status := StatusFor(domainErr.Code)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
			c.JSON(status, ErrorResponse{
				Error: ErrorBody{
					Code:    domainerrors.ErrInternal,
					Message: domainErr.Message,
				},
			})
			return
		}
		c.JSON(status, ErrorResponse{
			Error: ErrorBody{
				Code:    domainErr.Code,
				Message: domainErr.Message,
			},
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorBody{
			Code:    domainerrors.ErrInternal,
			Message: "an unexpected error occurred",
		},
	})
}

// Validation writes a 400 with the VALIDATION code, for binding failures.
func Validation(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorBody{Code: domainerrors.ErrValidation, Message: msg},
	})
}
