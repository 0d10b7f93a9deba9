// file: internal/middleware/middleware.go
package middleware

import (
	"net/http"
	"time"

	"ecomission/internal/contextutils"
	"ecomission/internal/response"
	"ecomission/internal/services"

	"go.uber.org/zap"
)

const slowRequestThreshold = 2 * time.Second

// Logging records the outcome of every request on the request-scoped logger
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			requestLogger := contextutils.GetLogger(r.Context(), logger)
			requestLogger.Info("Request completed",
				zap.Int("status", rw.status),
				zap.Duration("duration", duration),
				zap.Int64("response_size", rw.bytesWritten),
				zap.Int64("user_id", contextutils.GetUserID(r.Context())),
			)

			if duration > slowRequestThreshold {
				requestLogger.Warn("Slow request detected", zap.Duration("duration", duration))
			}
		})
	}
}

// RecoverPanic turns a handler panic into an INTERNAL_ERROR response
func RecoverPanic(builder *response.Builder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					contextutils.GetLogger(r.Context(), logger).Error("Panic recovered",
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					builder.WriteError(w, r, services.NewInternalError("panic while handling request", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS middleware
func CORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Correlation-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeaders sets the default security headers of an API response
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	written, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += int64(written)
	return written, err
}
