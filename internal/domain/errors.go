package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Plan Errors (PLAN_*)
	ErrorCodePlanInvalidConfig ErrorCode = "PLAN_INVALID_CONFIGURATION"
	ErrorCodePlanNotFound      ErrorCode = "PLAN_NOT_FOUND"

	// Service Errors (SERVICE_*)
	ErrorCodeServiceNotFound ErrorCode = "SERVICE_NOT_FOUND"
	ErrorCodeServiceLocked   ErrorCode = "SERVICE_LOCKED"

	// Invoice Errors (INVOICE_*)
	ErrorCodeInvoiceNotFound ErrorCode = "INVOICE_NOT_FOUND"

	// Renewal Errors (RENEWAL_*)
	ErrorCodeInvalidTransition ErrorCode = "RENEWAL_INVALID_TRANSITION"
	ErrorCodeCatchUpLimit      ErrorCode = "RENEWAL_CATCH_UP_LIMIT"

	// Collaborator Errors
	ErrorCodeCollaboratorFailure ErrorCode = "COLLABORATOR_FAILURE"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// InvalidPlanConfiguration builds the error returned for plans whose cadence cannot be evaluated.
// It indicates a data-integrity problem upstream and is never retried.
func InvalidPlanConfiguration(format string, args ...interface{}) *DomainError {
	return NewDomainError(ErrorCodePlanInvalidConfig, fmt.Sprintf(format, args...))
}

// CollaboratorFailure wraps an error returned by an activation, invoice or payment collaborator
func CollaboratorFailure(operation string, err error) *DomainError {
	return WrapError(ErrorCodeCollaboratorFailure, operation+" failed", err).
		WithDetail("operation", operation)
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodePlanNotFound ||
		code == ErrorCodeServiceNotFound ||
		code == ErrorCodeInvoiceNotFound
}

// Structured error instances
var (
	ErrPlanNotFound    = NewDomainError(ErrorCodePlanNotFound, "plan not found")
	ErrServiceNotFound = NewDomainError(ErrorCodeServiceNotFound, "service not found")
	ErrInvoiceNotFound = NewDomainError(ErrorCodeInvoiceNotFound, "invoice not found")
	ErrServiceLocked   = NewDomainError(ErrorCodeServiceLocked, "service is being modified by another worker")
	ErrDatabaseError   = NewDomainError(ErrorCodeDatabaseError, "database error")
)
