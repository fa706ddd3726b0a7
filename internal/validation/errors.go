package validation

import (
	"fmt"
)

// Codes reported by ValidationError.
const (
	CodeMissingName       = "missing-name"
	CodeMissingPrefecture = "missing-prefecture"
	CodeMissingGender     = "missing-gender"
	CodeInvalidPayload    = "invalid-payload"
)

// ValidationError is a recoverable problem with a user-supplied draft
// field. It keeps the user on the current step.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s (%s)", e.Code, e.Field)
	}
	return "validation failed: " + e.Code
}

func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}
