package models

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("requested resource not found")
var ErrForbidden = errors.New("user does not have permission to access this resource")
var ErrConflict = errors.New("resource conflict, item already exists")
var ErrInvalidToken = errors.New("token not found or expired")
var ErrInvalidCredentials = errors.New("invalid credentials") // email or password provided does not match database record
var ErrOAuthUnavailable = errors.New("oauth provider not configured")

// ErrInvalidStatusTransition is returned when an adventure status change
// would move the state machine backwards or out of a terminal state.
var ErrInvalidStatusTransition = errors.New("invalid adventure status transition")

// ValidationError reports a malformed request. The pipeline never starts
// when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse is the JSON body returned by handlers on failure.
type ErrorResponse struct {
	Message string `json:"message"`
}
