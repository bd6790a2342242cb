package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"auth", NewAuthError("no", nil), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("no", nil), http.StatusForbidden},
		{"not found", NewNotFoundError("gone", nil), http.StatusNotFound},
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest},
		{"bad request", NewBadRequestError("bad", nil), http.StatusBadRequest},
		{"conflict", NewConflictError("dup", nil), http.StatusConflict},
		{"too many", NewTooManyRequestsError("slow down", nil), http.StatusTooManyRequests},
		{"database", NewDatabaseError("boom", nil), http.StatusInternalServerError},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "fail", StatusText(http.StatusNotFound))
	assert.Equal(t, "fail", StatusText(http.StatusTooManyRequests))
	assert.Equal(t, "error", StatusText(http.StatusInternalServerError))
	assert.Equal(t, "error", StatusText(http.StatusBadGateway))
}

func TestStatusFollowsCode(t *testing.T) {
	assert.Equal(t, "fail", NewNotFoundError("gone", nil).Status())
	assert.Equal(t, "error", NewDatabaseError("boom", nil).Status())
}

func TestIsOperational(t *testing.T) {
	assert.True(t, NewNotFoundError("gone", nil).IsOperational())
	assert.True(t, NewAuthError("no", nil).IsOperational())
	assert.True(t, NewValidationError("bad", nil).IsOperational())
	assert.False(t, NewDatabaseError("boom", nil).IsOperational())
	assert.False(t, NewInternalError("boom", nil).IsOperational())
	assert.False(t, NewConfigError("boom", nil).IsOperational())
}

func TestErrorIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError("failed to get tour", cause)
	assert.Equal(t, "failed to get tour: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFromErrorUnwrapsWrappedAppError(t *testing.T) {
	inner := NewNotFoundError("No tour found with that ID", nil)
	wrapped := fmt.Errorf("listing: %w", inner)

	appErr, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, inner, appErr)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("gone", nil)))
	assert.False(t, IsNotFound(NewAuthError("no", nil)))
	assert.True(t, IsAuthError(NewAuthError("no", nil)))
	assert.True(t, IsForbidden(NewForbiddenError("no", nil)))
	assert.True(t, IsValidationError(NewValidationError("bad", nil)))
	assert.True(t, IsConflict(NewConflictError("dup", nil)))
}
