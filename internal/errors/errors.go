// Package errors defines the typed error taxonomy reported at component
// boundaries. Every error callers can act on is a *DomainError carrying a
// stable code and the HTTP status handlers should map it to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError is a typed business error.
type DomainError struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on the stable code so wrapped copies compare equal to the
// package-level sentinel values.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// WithDetails returns a copy carrying extra context for the caller.
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Details: details,
	}
}

// Validation builds a VALIDATION error with a specific message.
func Validation(message string) *DomainError {
	return &DomainError{Code: "VALIDATION", Message: message, Status: http.StatusBadRequest}
}

// NotFound builds a NOT_FOUND error for a named entity.
func NotFound(entity string) *DomainError {
	return &DomainError{
		Code:    "NOT_FOUND",
		Message: entity + " not found",
		Status:  http.StatusNotFound,
	}
}

// Forbidden builds a FORBIDDEN error with a specific message.
func Forbidden(message string) *DomainError {
	return &DomainError{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden}
}

// Conflict builds a CONFLICT error with a specific message.
func Conflict(message string) *DomainError {
	return &DomainError{Code: "CONFLICT", Message: message, Status: http.StatusConflict}
}

// NewTransitionError reports an illegal order state transition, identifying
// the current and the requested state. The order row is left unchanged.
func NewTransitionError(current, requested string) *DomainError {
	return &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("cannot transition order from %s to %s", current, requested),
		Status:  http.StatusConflict,
		Details: map[string]interface{}{
			"current":   current,
			"requested": requested,
		},
	}
}

// AsDomain extracts a *DomainError from err, if there is one.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
