package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "drone-fleet/internal/errors"
)

func TestDomainError_Message(t *testing.T) {
	err := domainerrors.DroneNotFound("d-1")
	assert.Equal(t, "[NOT_FOUND] drone with id d-1 not found", err.Error())

	cause := stderrors.New("connection reset")
	wrapped := domainerrors.NewInternal("failed to load order", cause)
	assert.Equal(t, "[INTERNAL] failed to load order: connection reset", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestDomainError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", domainerrors.DroneUnavailable("d-1"))

	assert.ErrorIs(t, err, &domainerrors.DomainError{Code: domainerrors.ErrDroneUnavailable})
	assert.NotErrorIs(t, err, &domainerrors.DomainError{Code: domainerrors.ErrNotFound})
}

func TestAsAndHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", domainerrors.OrderNotAssignable("o-1", "delivered"))

	de, ok := domainerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, domainerrors.ErrOrderNotAssignable, de.Code)
	assert.True(t, domainerrors.HasCode(err, domainerrors.ErrOrderNotAssignable))
	assert.False(t, domainerrors.HasCode(stderrors.New("plain"), domainerrors.ErrOrderNotAssignable))
}
