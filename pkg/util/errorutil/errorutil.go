package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/service-desk/internal/domain"
)

// DomainError standardizes application errors at the transport boundary.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts engine errors to a DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var transitionErr *domain.TransitionError
	switch {
	case errors.As(err, &transitionErr):
		return &DomainError{
			Code:       "INVALID_TRANSITION",
			Message:    "transition not allowed",
			HTTPStatus: http.StatusConflict,
			Details: map[string]any{
				"from": string(transitionErr.From),
				"to":   string(transitionErr.To),
			},
			Err: err,
		}
	case errors.Is(err, domain.ErrInvalidTransition):
		return &DomainError{Code: "INVALID_TRANSITION", Message: "transition not allowed", HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrAlreadyResolved):
		return &DomainError{Code: "ALREADY_RESOLVED", Message: "item already resolved", HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrNotFound):
		return &DomainError{Code: "NOT_FOUND", Message: "resource not found", HTTPStatus: http.StatusNotFound, Err: err}
	case errors.Is(err, domain.ErrValidation):
		return &DomainError{Code: "VALIDATION_FAILED", Message: err.Error(), HTTPStatus: http.StatusBadRequest}
	case errors.Is(err, domain.ErrPolicyNotFound):
		return &DomainError{Code: "POLICY_NOT_FOUND", Message: "no sla policy for priority", HTTPStatus: http.StatusInternalServerError, Err: err}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
