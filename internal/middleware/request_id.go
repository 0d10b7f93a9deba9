// file: internal/middleware/request_id.go
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"ecomission/internal/contextutils"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// Request ID header constants
const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
)

// RequestID middleware generates and injects unique correlation IDs for request tracing
func RequestID(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = r.Header.Get(HeaderXCorrelationID)
			}
			if requestID == "" {
				if id, err := uuid.NewV4(); err == nil {
					requestID = id.String()
				} else {
					requestID = "req-" + strconv.FormatInt(time.Now().UnixNano(), 36)
				}
			}

			w.Header().Set(HeaderXRequestID, requestID)

			requestLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)

			ctx := contextutils.WithRequestID(r.Context(), requestID)
			ctx = contextutils.WithLogger(ctx, requestLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
