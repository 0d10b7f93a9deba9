package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServiceError
		status int
		typ    string
	}{
		{"not found", EntityNotFoundError("mission", 7), http.StatusNotFound, ErrTypeNotFound},
		{"forbidden", NewForbiddenError("students only"), http.StatusForbidden, ErrTypeForbidden},
		{"invalid state", NewInvalidStateError("closed", CodeMissionAlreadyClosed), http.StatusConflict, ErrTypeInvalidState},
		{"duplicate", NewDuplicateSubmissionError(3), http.StatusConflict, ErrTypeDuplicateSubmission},
		{"category", NewInvalidCategoryError("BIKE"), http.StatusBadRequest, ErrTypeInvalidCategory},
		{"storage", NewStorageError("upload failed", errors.New("timeout")), http.StatusServiceUnavailable, ErrTypeStorage},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError, ErrTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.GetStatusCode())
			assert.Equal(t, tt.typ, tt.err.Type)
		})
	}
}

func TestStorageErrorIsRetryable(t *testing.T) {
	err := NewStorageError("upload failed", errors.New("timeout"))
	assert.True(t, err.Retryable)
	assert.ErrorContains(t, err, "timeout")
}

func TestIsErrorTypeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewDuplicateSubmissionError(1))

	assert.True(t, IsDuplicateSubmissionError(wrapped))
	assert.False(t, IsInvalidStateError(wrapped))
	assert.Equal(t, ErrTypeDuplicateSubmission, GetServiceError(wrapped).Type)
}

func TestGetServiceErrorWrapsPlainErrors(t *testing.T) {
	err := GetServiceError(errors.New("disk on fire"))
	assert.Equal(t, ErrTypeInternal, err.Type)
	assert.Nil(t, GetServiceError(nil))
}
