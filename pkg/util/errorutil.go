package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lunarcity/ticketdesk/internal/domain"
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

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts lifecycle and generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var dup *domain.DuplicateActiveTicketError
	if errors.As(err, &dup) {
		details := map[string]any{}
		if dup.Existing != nil {
			details["existing_ticket_id"] = dup.Existing.ID
			details["category"] = dup.Existing.Category
		}
		return NewDomainError("DUPLICATE_ACTIVE_TICKET", err.Error(), http.StatusConflict, details)
	}
	var invalid *domain.InvalidStateError
	if errors.As(err, &invalid) {
		return NewDomainError("INVALID_STATE", err.Error(), http.StatusConflict, map[string]any{
			"ticket_id": invalid.TicketID,
			"state":     string(invalid.State),
		})
	}
	var claimed *domain.AlreadyClaimedError
	if errors.As(err, &claimed) {
		return NewDomainError("ALREADY_CLAIMED", err.Error(), http.StatusConflict, map[string]any{
			"ticket_id":  claimed.TicketID,
			"claimed_by": claimed.ClaimedBy,
		})
	}
	var cfg *domain.ConfigError
	if errors.As(err, &cfg) {
		return NewDomainError("VALIDATION_FAILED", err.Error(), http.StatusBadRequest, map[string]any{
			"field": cfg.Field,
			"value": cfg.Value,
		})
	}
	if errors.Is(err, domain.ErrParticipantExists) ||
		errors.Is(err, domain.ErrParticipantMissing) ||
		errors.Is(err, domain.ErrOwnerParticipant) {
		return NewDomainError("CONFLICT", err.Error(), http.StatusConflict, nil)
	}
	if errors.Is(err, domain.ErrNotFound) {
		if de, ok := NewNotFound("ticket", nil).(*DomainError); ok {
			return de
		}
	}
	var platformErr *domain.PlatformError
	if errors.As(err, &platformErr) {
		return NewDomainError("PLATFORM_UNAVAILABLE", "chat platform call failed", http.StatusServiceUnavailable, nil)
	}
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		return NewDomainError("STORE_UNAVAILABLE", "ticket store call failed", http.StatusServiceUnavailable, nil)
	}

	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
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
