package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// DomainError standardizes application errors.
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

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewRateLimitExceeded signals the caller must wait before creating tickets.
func NewRateLimitExceeded(maxTickets, windowHours int) error {
	return NewDomainError(
		"RATE_LIMIT_EXCEEDED",
		fmt.Sprintf("you have reached the limit of %d tickets per %d hours; please try again later", maxTickets, windowHours),
		http.StatusTooManyRequests,
		map[string]any{"max_tickets": maxTickets, "window_hours": windowHours},
	)
}

// NewContentRejected signals a moderation rejection. The original content is
// echoed back so the caller can re-render an editable form.
func NewContentRejected(category domain.ModerationCategory, message, title, description string) error {
	return NewDomainError("CONTENT_REJECTED", message, http.StatusUnprocessableEntity, map[string]any{
		"category":             category,
		"original_title":       title,
		"original_description": description,
	})
}

// NewIllegalTransition signals a status change the state machine forbids.
func NewIllegalTransition(current, requested domain.TicketStatus) error {
	return NewDomainError(
		"ILLEGAL_TRANSITION",
		fmt.Sprintf("cannot transition ticket from %s to %s", current, requested),
		http.StatusConflict,
		map[string]any{"current_status": current, "requested_status": requested},
	)
}

// NewPersistenceError wraps an infrastructure failure the caller may retry.
func NewPersistenceError(err error) error {
	return &DomainError{
		Code:       "PERSISTENCE_ERROR",
		Message:    "storage temporarily unavailable, please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
