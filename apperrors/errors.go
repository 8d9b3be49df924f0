package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the application-level error carried across package boundaries.
// Code and Details end up verbatim in HTTP error bodies.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidation(message string, details map[string]any) *Error {
	return &Error{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Details: details,
	}
}

func NewNotFound(resource, resourceID string) *Error {
	return &Error{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, resourceID),
		Status:  http.StatusNotFound,
		Details: map[string]any{"resource": resource, "resource_id": resourceID},
	}
}

func NewAuthentication(message string) *Error {
	if message == "" {
		message = "Authentication failed"
	}
	return &Error{
		Code:    "AUTHENTICATION_ERROR",
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func NewAuthorization(message string) *Error {
	if message == "" {
		message = "Insufficient permissions"
	}
	return &Error{
		Code:    "AUTHORIZATION_ERROR",
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func NewAgent(message string, err error) *Error {
	return &Error{
		Code:    "AI_AGENT_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func NewExternalService(service, message string) *Error {
	return &Error{
		Code:    "EXTERNAL_SERVICE_ERROR",
		Message: fmt.Sprintf("External service %s error: %s", service, message),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"service": service},
	}
}

func NewInternal(err error) *Error {
	return &Error{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// IsNotFound reports whether any error in the chain is a NOT_FOUND app error.
func IsNotFound(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}

// FromError returns the app error in the chain, or wraps err as generic internal.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
