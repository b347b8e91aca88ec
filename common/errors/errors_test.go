package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobbridge/portal/lifecycle"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"project not found", ErrProjectNotFound, http.StatusNotFound},
		{"client not found", ErrClientNotFound, http.StatusNotFound},
		{"ticket not found", ErrTicketNotFound, http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"token expired", ErrTokenExpired, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"not project member", ErrNotProjectMember, http.StatusForbidden},
		{"checklist incomplete", ErrChecklistIncomplete, http.StatusBadRequest},
		{"ticket closed", ErrTicketClosed, http.StatusBadRequest},
		{"invalid ticket status", ErrInvalidTicketStatus, http.StatusBadRequest},
		{"invalid action", lifecycle.ErrInvalidAction, http.StatusBadRequest},
		{"invalid stage", lifecycle.ErrInvalidStage, http.StatusBadRequest},
		{"terminal stage", lifecycle.ErrTerminalStage, http.StatusBadRequest},
		{"first stage", lifecycle.ErrFirstStage, http.StatusBadRequest},
		{"invalid transition", lifecycle.ErrInvalidTransition, http.StatusBadRequest},
		{"concurrent modification", lifecycle.ErrConcurrentModification, http.StatusConflict},
		{"conflict", ErrConflict, http.StatusConflict},
		{"ai rate limit", ErrAIRateLimit, http.StatusTooManyRequests},
		{"ai unavailable", ErrAIServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", assertionError{}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

type assertionError struct{}

func (assertionError) Error() string { return "boom" }

func TestAppErrorStatusWins(t *testing.T) {
	err := New(ErrNotFound, "custom message", http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, HTTPStatusCode(err))
	assert.Equal(t, "custom message", err.Error())
}

func TestWrappedSentinelStillMaps(t *testing.T) {
	wrapped := Wrap(ErrProjectNotFound, "loading project")
	// Wrap pins 500 via AppError; but errors.Is unwrapping still works
	assert.ErrorIs(t, wrapped, ErrProjectNotFound)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(ErrProjectNotFound))
	assert.False(t, IsNotFound(ErrForbidden))
}
