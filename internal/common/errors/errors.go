// Package errors provides standardized error handling for the AI query pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeEmptyQuery ErrorCode = "EMPTY_QUERY"

	ErrCodeMultipleStatements ErrorCode = "MULTIPLE_STATEMENTS"
	ErrCodeForbiddenKeyword   ErrorCode = "FORBIDDEN_KEYWORD"
	ErrCodeSystemSchemaAccess ErrorCode = "SYSTEM_SCHEMA_ACCESS"
	ErrCodeNotASelect         ErrorCode = "NOT_A_SELECT"
	ErrCodeTableNotAllowed    ErrorCode = "TABLE_NOT_ALLOWED"

	ErrCodeGenerationRejected        ErrorCode = "GENERATION_REJECTED"
	ErrCodeUpstreamGenerationFailure ErrorCode = "UPSTREAM_GENERATION_FAILURE"

	ErrCodeNotReadOnly      ErrorCode = "NOT_READ_ONLY"
	ErrCodeExecutionFailed  ErrorCode = "EXECUTION_FAILED"
	ErrCodeExecutionTimeout ErrorCode = "EXECUTION_TIMEOUT"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or empty when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmptyQueryError creates a non-retryable request validation error.
func NewEmptyQueryError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyQuery,
		Message:   "Query text is required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMultipleStatementsError rejects SQL containing more than one statement.
func NewMultipleStatementsError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMultipleStatements,
		Message:   "Multiple SQL statements are not allowed",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenKeywordError rejects SQL containing a mutation or DDL keyword.
func NewForbiddenKeywordError(keyword string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbiddenKeyword,
		Message:   "Query contains forbidden keywords",
		Details:   fmt.Sprintf("keyword: %s", keyword),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemSchemaAccessError rejects SQL touching system or introspection schemas.
func NewSystemSchemaAccessError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSystemSchemaAccess,
		Message:   "Access to system schemas is not allowed",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotASelectError rejects statements that are not plain SELECTs.
func NewNotASelectError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNotASelect,
		Message:   "Query must be a SELECT statement",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTableNotAllowedError rejects SQL referencing a table outside the allowlist.
func NewTableNotAllowedError(table string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTableNotAllowed,
		Message:   fmt.Sprintf("Table not allowed: %s", table),
		Details:   fmt.Sprintf("table: %s", table),
		Retryable: false,
		Metadata:  map[string]interface{}{"table": table},
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationRejectedError wraps a validator or post-generation rejection.
func NewGenerationRejectedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationRejected,
		Message:   "Could not generate a valid SQL query",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamGenerationFailureError creates an error for text generation
// service failures. Marked retryable for operational alerting; the
// pipeline itself never retries.
func NewUpstreamGenerationFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamGenerationFailure,
		Message:   "Text generation service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotReadOnlyError rejects execution of anything but a SELECT.
func NewNotReadOnlyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNotReadOnly,
		Message:   "Only SELECT statements are allowed",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionFailedError wraps an analytics store error. The message is
// surfaced to callers; connection details must never be included.
func NewExecutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionFailed,
		Message:   "Query execution failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionTimeoutError creates a distinct timeout error so operations
// can alert on timeouts separately from plain execution failures.
func NewExecutionTimeoutError(timeoutMs int) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionTimeout,
		Message:   "Query execution timed out",
		Details:   fmt.Sprintf("timeoutMs: %d", timeoutMs),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates an error for exhausted request windows.
func NewRateLimitedError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests, please slow down",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// IsRejection reports whether the error is a static validation rejection
// rather than an execution or upstream failure.
func IsRejection(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMultipleStatements, ErrCodeForbiddenKeyword,
		ErrCodeSystemSchemaAccess, ErrCodeNotASelect,
		ErrCodeTableNotAllowed, ErrCodeGenerationRejected:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeEmptyQuery:
		return "request"
	case ErrCodeMultipleStatements, ErrCodeForbiddenKeyword,
		ErrCodeSystemSchemaAccess, ErrCodeNotASelect, ErrCodeTableNotAllowed:
		return "validation"
	case ErrCodeGenerationRejected, ErrCodeUpstreamGenerationFailure:
		return "generation"
	case ErrCodeNotReadOnly, ErrCodeExecutionFailed, ErrCodeExecutionTimeout:
		return "execution"
	case ErrCodeRateLimited:
		return "throttling"
	default:
		return "unknown"
	}
}
