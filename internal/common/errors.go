package common

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrStore        = errors.New("store error")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// EmptySchemaError is returned when an extraction is requested for a schema
// with zero named fields. It is raised before any service call is made.
type EmptySchemaError struct{}

func (e *EmptySchemaError) Error() string {
	return "schema has no named fields; add at least one field before extracting"
}

// ServiceError wraps a transport failure or non-2xx response from the
// document understanding service. The message is passed through verbatim.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("document service status %d: %s", e.Status, e.Message)
	}
	return "document service: " + e.Message
}

// MalformedResponseError means the service answered 2xx but its payload did
// not parse as JSON. Raw holds a truncated prefix of the response text so the
// caller can judge whether a retry with a different model is worthwhile.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

const rawPreviewLimit = 256

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("response is not valid JSON: %v (raw: %s)", e.Cause, e.Raw)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// NewMalformedResponseError keeps only a bounded prefix of the raw payload.
func NewMalformedResponseError(raw string, cause error) *MalformedResponseError {
	return &MalformedResponseError{Raw: Truncate(raw, rawPreviewLimit), Cause: cause}
}

// Truncate shortens s to at most n bytes, marking the cut with an ellipsis.
// The cut never splits a multi-byte rune.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
