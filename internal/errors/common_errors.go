package errors

import (
	"errors"
	"fmt"

	"plaudit/pkg/contracts/domain"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeStructuralAmbiguity       ErrorType = "STRUCTURAL_AMBIGUITY"
	ErrTypeParseCoercion             ErrorType = "PARSE_COERCION"
	ErrTypeInvariantViolation        ErrorType = "INVARIANT_VIOLATION"
	ErrTypeReconciliationDiscrepancy ErrorType = "RECONCILIATION_DISCREPANCY"
	ErrTypeLookupFailure             ErrorType = "LOOKUP_FAILURE"
	ErrTypeMissingInput              ErrorType = "MISSING_INPUT"
	ErrTypeConfig                    ErrorType = "CONFIG"
)

// Fatal reports whether an error of this type aborts the run. Every other type
// is recorded as a diagnostic and processing continues.
func (t ErrorType) Fatal() bool {
	return t == ErrTypeMissingInput || t == ErrTypeConfig
}

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Diagnostic converts a non-fatal error into a recorded diagnostic.
func (e *AppError) Diagnostic() domain.Diagnostic {
	d := domain.Diagnostic{Type: domain.DiagnosticType(e.Type), Message: e.Message}
	if sheet, ok := e.Context["sheet"].(string); ok {
		d.Sheet = sheet
	}
	if column, ok := e.Context["column"].(string); ok {
		d.Column = column
	}
	return d
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Helper functions for common error types

// NewMissingInputError reports an input file or required sheet that cannot be read.
func NewMissingInputError(source, sheet string, cause error) *AppError {
	msg := fmt.Sprintf("input %s cannot be read", source)
	if sheet != "" {
		msg = fmt.Sprintf("required sheet %q missing from input %s", sheet, source)
	}
	return NewAppError(ErrTypeMissingInput, msg, cause).
		WithContext("source", source).
		WithContext("sheet", sheet)
}

// NewStructuralAmbiguity records a low-confidence header placement.
func NewStructuralAmbiguity(sheet, message string) *AppError {
	return NewAppError(ErrTypeStructuralAmbiguity, message, nil).WithContext("sheet", sheet)
}

// NewParseCoercion records cells coerced to null during numeric conversion.
func NewParseCoercion(sheet, column, message string) *AppError {
	return NewAppError(ErrTypeParseCoercion, message, nil).
		WithContext("sheet", sheet).
		WithContext("column", column)
}

// NewInvariantViolation records a failed invariant check.
func NewInvariantViolation(sheet, column, message string) *AppError {
	return NewAppError(ErrTypeInvariantViolation, message, nil).
		WithContext("sheet", sheet).
		WithContext("column", column)
}

// NewReconciliationDiscrepancy records a detail aggregate that does not match its reference.
func NewReconciliationDiscrepancy(check, message string) *AppError {
	return NewAppError(ErrTypeReconciliationDiscrepancy, message, nil).WithContext("check", check)
}

// NewLookupFailure records a benchmark or summary label that could not be resolved.
func NewLookupFailure(sheet, label, message string) *AppError {
	return NewAppError(ErrTypeLookupFailure, message, nil).
		WithContext("sheet", sheet).
		WithContext("label", label)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsMissingInput reports whether err is a missing input error.
func IsMissingInput(err error) bool {
	return IsType(err, ErrTypeMissingInput)
}

// IsFatal reports whether err must abort the run. Errors that are not
// AppErrors are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type.Fatal()
	}
	return true
}
