package services

import (
	"errors"
	"fmt"

	"github.com/campusfleet/exam-service/internal/repositories"
	"github.com/campusfleet/exam-service/internal/validator"
)

// Sentinel errors for the common service failure modes.
var (
	ErrExamNotFound         = errors.New("exam not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists for this student and exam")
	ErrSessionFinished      = errors.New("session is already finished")
	ErrSessionNotFinished   = errors.New("session is not finished yet")
	ErrResultNotFound       = errors.New("result not found")
	ErrReportCardNotFound   = errors.New("report card not found")
	ErrUserNotFound         = errors.New("user not found")
)

// ValidationError marks a request that failed a business rule.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// PermissionError marks an operation the caller's role does not allow.
type PermissionError struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{UserID: userID, Resource: resource, Action: action, Reason: reason}
}

// IsNotFoundError reports whether err is any of the not-found shapes
// the service layer can produce or pass through.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrReportCardNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		repositories.IsNotFoundError(err)
}

// IsValidationError reports whether err carries a validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ves validator.ValidationErrors
	return errors.As(err, &ves)
}

// IsPermissionError reports whether err is a permission denial.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsConflictError reports whether err is a duplicate-state conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSessionAlreadyExists) || errors.Is(err, ErrSessionFinished)
}
