package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ecomission/internal/contextutils"
	"ecomission/internal/services"
	"ecomission/internal/validation"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE CONFIGURATION
// ===============================

// Config holds configuration for the response system
type Config struct {
	PrettyJSON         bool   `json:"pretty_json"`
	IncludeRequestID   bool   `json:"include_request_id"`
	IncludeTimestamp   bool   `json:"include_timestamp"`
	APIVersion         string `json:"api_version"`
	MaskInternalErrors bool   `json:"mask_internal_errors"`
}

// DefaultConfig returns production-ready response configuration
func DefaultConfig() *Config {
	return &Config{
		PrettyJSON:         false,
		IncludeRequestID:   true,
		IncludeTimestamp:   true,
		APIVersion:         "v1",
		MaskInternalErrors: true,
	}
}

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Version   string       `json:"version,omitempty"`
}

// ErrorDetail represents error information in API responses
type ErrorDetail struct {
	Type      string                  `json:"type"`
	Message   string                  `json:"message"`
	Code      string                  `json:"code,omitempty"`
	Retryable bool                    `json:"retryable,omitempty"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
	Details   map[string]interface{}  `json:"details,omitempty"`
}

// ===============================
// RESPONSE BUILDER
// ===============================

// Builder helps construct standardized responses
type Builder struct {
	config *Config
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates a new response builder
func NewBuilder(config *Config, logger *zap.Logger) *Builder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Success creates a successful API response
func (b *Builder) Success(ctx context.Context, data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.config.APIVersion,
	}
}

// Error creates an error response from a service error
func (b *Builder) Error(ctx context.Context, err error) *APIResponse {
	detail := b.convertError(err)
	b.logError(ctx, err, detail)

	return &APIResponse{
		Success:   false,
		Error:     detail,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.config.APIVersion,
	}
}

// ===============================
// HTTP RESPONSE WRITERS
// ===============================

// WriteJSON writes a JSON response with appropriate headers
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, response *APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if statusCode >= 400 {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if b.config.PrettyJSON {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(response); err != nil {
		b.logger.Error("Failed to encode JSON response",
			zap.Error(err),
			zap.String("request_id", b.getRequestID(r.Context())),
		)
	}
}

// WriteSuccess writes a successful JSON response
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusOK)
}

// WriteCreated writes a successful creation response
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusCreated)
}

// WriteError writes an error response with appropriate status code
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if se := services.GetServiceError(err); se != nil && se.Type == services.ErrTypeStorage {
		w.Header().Set("Retry-After", "5")
	}
	b.WriteJSON(w, r, b.Error(r.Context(), err), StatusFromError(err))
}

// ===============================
// UTILITY METHODS
// ===============================

// StatusFromError determines the HTTP status code of err
func StatusFromError(err error) int {
	if se := services.GetServiceError(err); se != nil {
		return se.GetStatusCode()
	}
	return http.StatusInternalServerError
}

// convertError converts any error to an ErrorDetail
func (b *Builder) convertError(err error) *ErrorDetail {
	se := services.GetServiceError(err)
	if se == nil {
		return nil
	}

	detail := &ErrorDetail{
		Type:      se.Type,
		Message:   se.Message,
		Code:      se.Code,
		Retryable: se.Retryable,
		Details:   se.Details,
	}

	var fields validation.Errors
	if errors.As(err, &fields) {
		detail.Fields = fields
	}

	if b.config.MaskInternalErrors && se.Type == services.ErrTypeInternal {
		detail.Message = "An internal error occurred"
		detail.Details = nil
	}

	return detail
}

func (b *Builder) getRequestID(ctx context.Context) string {
	if !b.config.IncludeRequestID {
		return ""
	}
	return contextutils.GetRequestID(ctx)
}

func (b *Builder) getTimestamp() int64 {
	if !b.config.IncludeTimestamp {
		return 0
	}
	return b.now().Unix()
}

// logError logs at a level matching the error type
func (b *Builder) logError(ctx context.Context, err error, detail *ErrorDetail) {
	logger := contextutils.GetLogger(ctx, b.logger)
	fields := []zap.Field{
		zap.String("request_id", contextutils.GetRequestID(ctx)),
		zap.String("error_type", detail.Type),
		zap.String("error_code", detail.Code),
	}

	switch detail.Type {
	case services.ErrTypeInternal:
		logger.Error("Internal error", append(fields, zap.Error(err))...)
	case services.ErrTypeStorage:
		logger.Warn("Storage error", append(fields, zap.Error(err))...)
	default:
		logger.Info("Request completed with error", append(fields, zap.String("error_message", detail.Message))...)
	}
}
