package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatUsage            ErrorCategory = "usage"             // Bad or missing CLI arguments
	ErrCatNotFound         ErrorCategory = "not_found"         // Artifact path or run missing
	ErrCatFormat           ErrorCategory = "format"            // Malformed JSON / JSONL input
	ErrCatValidation       ErrorCategory = "validation"        // Manifest rule violations
	ErrCatMismatch         ErrorCategory = "mismatch"          // Replay diverged from recording
	ErrCatDeterminism      ErrorCategory = "determinism"       // Recorded inputs exhausted
	ErrCatInvalidArgument  ErrorCategory = "invalid_argument"  // Blank run id and similar
	ErrCatInvalidOperation ErrorCategory = "invalid_operation" // Bad configuration, bound seed mismatch
	ErrCatInternal         ErrorCategory = "internal"          // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrUsage creates a command-line usage error.
func ErrUsage(message string) *DomainError {
	return &DomainError{
		Category: ErrCatUsage,
		Code:     CodeUsage,
		Message:  message,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrFormat creates a malformed-input error.
func ErrFormat(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatFormat,
		Code:     code,
		Message:  message,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrMismatch creates a replay mismatch error.
func ErrMismatch(message string) *DomainError {
	return &DomainError{
		Category: ErrCatMismatch,
		Code:     CodeReplayMismatch,
		Message:  message,
	}
}

// ErrDeterminism creates an error for exhausted recorded inputs.
func ErrDeterminism(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatDeterminism,
		Code:     code,
		Message:  message,
	}
}

// ErrInvalidArgument creates an invalid argument error.
func ErrInvalidArgument(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatInvalidArgument,
		Code:     code,
		Message:  message,
	}
}

// ErrInvalidOperation creates an invalid operation error.
func ErrInvalidOperation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatInvalidOperation,
		Code:     code,
		Message:  message,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// MessageOf returns the human-readable message of a domain error, or the
// plain error text for anything else.
func MessageOf(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Message
	}
	return err.Error()
}

// Predefined error codes
const (
	CodeUsage          = "USAGE"
	CodeNotFound       = "NOT_FOUND"
	CodeReplayMismatch = "REPLAY_MISMATCH"

	// Input format codes
	CodeInvalidManifestJSON = "INVALID_MANIFEST_JSON"
	CodeInvalidEventLogJSON = "INVALID_EVENT_LOG_JSON"

	// Determinism codes
	CodeRunIDRequired       = "RUN_ID_REQUIRED"
	CodeReplayExhausted     = "REPLAY_EXHAUSTED"
	CodeRecordingDrift      = "RECORDING_DRIFT"
	CodeUnexpectedRunID     = "UNEXPECTED_RUN_ID"
	CodeSeedGeneration      = "SEED_GENERATION_FAILED"
	CodeInvalidWorkflowConf = "INVALID_WORKFLOW_CONFIG"
	CodeInvalidManifest     = "INVALID_MANIFEST"
	CodeEmptyEventLog       = "EMPTY_EVENT_LOG"

	// Storage codes
	CodeRunExists       = "RUN_EXISTS"
	CodeInvalidRunID    = "INVALID_RUN_ID"
	CodeInvalidSnapshot = "INVALID_SNAPSHOT"
)
