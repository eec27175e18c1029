package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/service-desk/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"transition", &domain.TransitionError{From: domain.TicketStatusClosed, To: domain.TicketStatusAccepted}, "INVALID_TRANSITION", http.StatusConflict},
		{"already resolved", fmt.Errorf("resolve: %w", domain.ErrAlreadyResolved), "ALREADY_RESOLVED", http.StatusConflict},
		{"not found", fmt.Errorf("ticket x: %w", domain.ErrNotFound), "NOT_FOUND", http.StatusNotFound},
		{"validation", domain.Validationf("unknown priority %q", "urgent"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"policy", domain.ErrPolicyNotFound, "POLICY_NOT_FOUND", http.StatusInternalServerError},
		{"other", context.Canceled, "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}
}

func TestToDomainError_TransitionDetails(t *testing.T) {
	err := fmt.Errorf("close: %w", &domain.TransitionError{From: domain.TicketStatusAccepted, To: domain.TicketStatusClosed})
	got := ToDomainError(err)
	assert.Equal(t, "ACCEPTED", got.Details["from"])
	assert.Equal(t, "CLOSED", got.Details["to"])
	assert.True(t, errors.Is(got, domain.ErrInvalidTransition))
}

func TestToDomainError_PassesThroughDomainError(t *testing.T) {
	original := NewValidationError("invalid payload", map[string]any{"field": "body"})
	got := ToDomainError(fmt.Errorf("wrap: %w", original))
	assert.Same(t, original, error(got))
	assert.Nil(t, ToDomainError(nil))
}
