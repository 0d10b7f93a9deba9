package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

const (
	ErrTypeNotFound            = "NOT_FOUND"
	ErrTypeForbidden           = "FORBIDDEN"
	ErrTypeUnauthorized        = "UNAUTHORIZED"
	ErrTypeInvalidState        = "INVALID_STATE"
	ErrTypeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	ErrTypeInvalidCategory     = "INVALID_CATEGORY"
	ErrTypeStorage             = "STORAGE_ERROR"
	ErrTypeValidation          = "VALIDATION_ERROR"
	ErrTypeRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrTypeInternal            = "INTERNAL_ERROR"
)

// Codes attached to INVALID_STATE errors
const (
	CodeMissionAlreadyClosed = "MISSION_ALREADY_CLOSED"
	CodeInvalidApprovalState = "INVALID_APPROVAL_STATE"
	CodeInvalidDateRange     = "INVALID_DATE_RANGE"
)

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// WithDetail attaches a key/value pair to the error details
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewInvalidStateError creates an error for a rejected state transition
func NewInvalidStateError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeInvalidState,
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewDuplicateSubmissionError creates a duplicate submission error
func NewDuplicateSubmissionError(missionID int64) *ServiceError {
	return (&ServiceError{
		Type:       ErrTypeDuplicateSubmission,
		Message:    "mission already submitted",
		StatusCode: http.StatusConflict,
	}).WithDetail("mission_id", missionID)
}

// NewInvalidCategoryError creates an error for a category without icon mapping
func NewInvalidCategoryError(category string) *ServiceError {
	return (&ServiceError{
		Type:       ErrTypeInvalidCategory,
		Message:    fmt.Sprintf("unknown mission category %q", category),
		StatusCode: http.StatusBadRequest,
	}).WithDetail("category", category)
}

// NewStorageError creates a retryable artifact storage error
func NewStorageError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeStorage,
		Message:    message,
		Retryable:  true,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewRateLimitError creates a retryable error for callers over their request quota
func NewRateLimitError(message string) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeRateLimit,
		Message:    message,
		Retryable:  true,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       ErrTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from an error, or creates a generic one
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	return NewInternalError(err.Error(), err)
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Type == errorType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsErrorType(err, ErrTypeNotFound)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return IsErrorType(err, ErrTypeForbidden)
}

// IsInvalidStateError checks if an error is an invalid state error
func IsInvalidStateError(err error) bool {
	return IsErrorType(err, ErrTypeInvalidState)
}

// IsDuplicateSubmissionError checks if an error is a duplicate submission error
func IsDuplicateSubmissionError(err error) bool {
	return IsErrorType(err, ErrTypeDuplicateSubmission)
}

// IsStorageError checks if an error is a storage error
func IsStorageError(err error) bool {
	return IsErrorType(err, ErrTypeStorage)
}

// EntityNotFoundError creates a standard entity not found error
func EntityNotFoundError(entityType string, id interface{}) *ServiceError {
	return NewNotFoundError(fmt.Sprintf("%s not found", entityType)).WithDetail("id", id)
}
