// Package errors provides structured error handling for scanwell operations.
// It defines error codes and typed errors carrying context, so callers can
// distinguish per-target failures (which never abort a batch) from fatal
// conditions like a missing scan engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConflict      ErrorCode = "CONFLICT"

	// Target expansion errors.
	CodeInputMalformed ErrorCode = "INPUT_MALFORMED"
	CodeResourceLimit  ErrorCode = "RESOURCE_LIMIT"

	// Engine and job errors.
	CodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	CodeJobSpawnFailed    ErrorCode = "JOB_SPAWN_FAILED"
	CodeJobFailed         ErrorCode = "JOB_FAILED"
	CodeArtifactParse     ErrorCode = "ARTIFACT_PARSE"
	CodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"

	// Database errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
)

// ScanError represents an error that occurred during scan orchestration.
type ScanError struct {
	Code    ErrorCode
	Message string
	Target  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// NewScanErrorWithTarget creates a scan error for a specific target.
func NewScanErrorWithTarget(code ErrorCode, message, target string) *ScanError {
	return &ScanError{Code: code, Message: message, Target: target}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{Code: code, Message: message}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field}
}

// DatabaseError represents database-related errors.
type DatabaseError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// NewDatabaseError creates a new database error.
func NewDatabaseError(code ErrorCode, message string) *DatabaseError {
	return &DatabaseError{Code: code, Message: message}
}

// WrapDatabaseError wraps an existing error as a database error.
func WrapDatabaseError(code ErrorCode, message string, err error) *DatabaseError {
	return &DatabaseError{Code: code, Message: message, Cause: err}
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Code
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsCapacity reports whether the error indicates the concurrency limit
// was hit at submission time.
func IsCapacity(err error) bool {
	return IsCode(err, CodeCapacityExceeded)
}

// IsFatal determines if an error indicates a condition that should stop
// the process rather than be recorded against a single target.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeEngineUnavailable, CodeConfiguration:
		return true
	default:
		return false
	}
}

// ErrEngineUnavailable creates an error for a missing or broken scan engine.
func ErrEngineUnavailable(err error) *ScanError {
	return WrapScanError(CodeEngineUnavailable, "Scan engine is not available", err)
}

// ErrAtCapacity creates an error for submissions beyond the concurrency limit.
func ErrAtCapacity(limit int) *ScanError {
	return NewScanError(CodeCapacityExceeded,
		fmt.Sprintf("Maximum concurrent scans reached (%d)", limit))
}

// ErrJobSpawn creates an error for a subprocess that could not start.
func ErrJobSpawn(target string, err error) *ScanError {
	return &ScanError{
		Code:    CodeJobSpawnFailed,
		Message: "Failed to start scan process",
		Target:  target,
		Cause:   err,
	}
}

// ErrDatabaseConnection creates an error for database connection failures.
func ErrDatabaseConnection(err error) *DatabaseError {
	return WrapDatabaseError(CodeDatabaseConnection, "Failed to connect to database", err)
}
