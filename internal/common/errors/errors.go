// Package errors provides standardized error handling for the application
// workflow engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeNotFound signals that no in-progress session or backend
	// record exists for the requested owner or id.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeIncomplete signals a submit attempt before every section of
	// the form passed validation.
	ErrCodeIncomplete ErrorCode = "INCOMPLETE"

	// ErrCodeValidationFailed carries one or more human-readable field
	// errors accumulated during section validation.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeConflict signals that an external identity is already linked
	// to a different owner, or that a terminal decision already stands.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeUpstreamFailure signals a failed backend or chat-platform
	// call. The upstream detail lives in Details, never in Message.
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"

	// ErrCodeInternal is the catch-all for unexpected failures.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Problems  []string               `json:"problems,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if len(e.Problems) > 0 {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, strings.Join(e.Problems, "; "))
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// UserMessage returns text safe to show to an end user. Upstream and
// internal errors are masked; the detail stays in Details for the logs.
func (e *StandardError) UserMessage() string {
	switch e.Code {
	case ErrCodeUpstreamFailure, ErrCodeInternal:
		return "Something went wrong on our side, please try again later. If this keeps happening, ping a staff member."
	default:
		return e.Message
	}
}

// ==========================
// Constructors
// ==========================

// NewNotFound creates an error for a missing session or backend record.
func NewNotFound(what string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", what),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIncomplete creates an error for a premature submit attempt.
func NewIncomplete(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncomplete,
		Message:   "Application is not complete yet",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailed wraps the accumulated field errors of one section.
func NewValidationFailed(problems []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "One or more answers need fixing",
		Problems:  problems,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflict creates an error for a state that contradicts the request.
func NewConflict(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamFailure wraps a failed backend or chat-platform call. The
// operation name keeps log lines greppable.
func NewUpstreamFailure(op string, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeUpstreamFailure,
		Message:   fmt.Sprintf("upstream call %s failed", op),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternal wraps an unexpected failure.
func NewInternal(cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "unexpected internal error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Inspection helpers
// ==========================

// AsStandard extracts a *StandardError from err, wrapping unknown errors
// as internal so callers always get the structured form.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternal(err)
}

// CodeOf returns the error code of err, or ErrCodeInternal for foreign
// error types.
func CodeOf(err error) ErrorCode {
	return AsStandard(err).Code
}

func IsNotFound(err error) bool   { return CodeOf(err) == ErrCodeNotFound }
func IsIncomplete(err error) bool { return CodeOf(err) == ErrCodeIncomplete }
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidationFailed }
func IsConflict(err error) bool   { return CodeOf(err) == ErrCodeConflict }
func IsUpstream(err error) bool   { return CodeOf(err) == ErrCodeUpstreamFailure }

// WithMetadata attaches key/value context to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}
