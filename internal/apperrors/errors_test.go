package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_UnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("saving journal: %w", NewStoreWriteError("failed to commit", cause))

	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNewAppError_KindFromCode(t *testing.T) {
	assert.ErrorIs(t, NewAppError(http.StatusBadRequest, "bad", nil), ErrValidation)
	assert.ErrorIs(t, NewAppError(http.StatusNotFound, "missing", nil), ErrNotFound)
	assert.ErrorIs(t, NewAppError(http.StatusConflict, "state", nil), ErrConflict)
	assert.ErrorIs(t, NewAppError(http.StatusInternalServerError, "boom", nil), ErrInternal)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("journal must have at least two transaction lines", "line 2 has a zero amount")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation error: journal must have at least two transaction lines; line 2 has a zero amount", err.Error())

	var vErr *ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &vErr))
	assert.Len(t, vErr.Problems, 2)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("x"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("journal j1: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", NewConflictError("journal is reversed"), http.StatusConflict},
		{"store write", NewStoreWriteError("commit", errors.New("x")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}
