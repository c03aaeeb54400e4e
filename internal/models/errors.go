package models

import (
	"errors"
	"strings"
)

// Error taxonomy shared by every service. Storage wraps driver failures in
// ErrStoreUnavailable; the web layer maps each sentinel onto a status code.
var (
	// ErrNotFound indicates a referenced document or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated indicates no session could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates the caller does not own the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrStoreUnavailable indicates a log or document store I/O failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a structured InvalidInput error
type ValidationError struct {
	Message string
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewFieldError builds a ValidationError for a single field
func NewFieldError(message, field, detail string) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: []FieldError{{Field: field, Message: detail}},
	}
}
