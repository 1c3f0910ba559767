package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", NotFound("post", 7), ErrNotFound},
		{"validation", ValidationFailed("username", "too short"), ErrValidation},
		{"conflict", Conflict("email", "taken"), ErrConflict},
		{"forbidden", Forbidden("not yours"), ErrForbidden},
		{"unauthenticated", Unauthenticated(), ErrUnauthenticated},
		{"storage conflict", StorageConflict(context.DeadlineExceeded), ErrStorageConflict},
		{"unavailable", Unavailable("mail", errors.New("dial tcp")), ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)

			var appErr *AppError
			assert.ErrorAs(t, wrapped, &appErr)
		})
	}
}

func TestFields(t *testing.T) {
	err := fmt.Errorf("register: %w", ValidationFailed("password", "Password must have at least 8 characters"))

	assert.Equal(t, []FieldError{{Field: "password", Message: "Password must have at least 8 characters"}}, Fields(err))
	assert.Nil(t, Fields(NotFound("post", 1)))
	assert.Nil(t, Fields(errors.New("plain")))
}

func TestCauseIsHiddenFromMessage(t *testing.T) {
	err := StorageConflict(errors.New("pq: could not serialize access"))

	assert.Equal(t, "storage busy, retry the request", err.Message)
	assert.Contains(t, err.Error(), "could not serialize")
	assert.NotErrorIs(t, err, ErrNotFound)
}
