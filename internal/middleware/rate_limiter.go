package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ecomission/internal/cache"
	"ecomission/internal/contextutils"
	"ecomission/internal/response"
	"ecomission/internal/services"

	"go.uber.org/zap"
)

// RateLimiter caps requests per user in fixed windows counted in the shared cache
type RateLimiter struct {
	cache   cache.Cache
	limit   int
	window  time.Duration
	builder *response.Builder
	logger  *zap.Logger
	now     func() time.Time
}

// RateLimitResult is the outcome of one limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(c cache.Cache, limit int, window time.Duration, builder *response.Builder, logger *zap.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		cache:   c,
		limit:   limit,
		window:  window,
		builder: builder,
		logger:  logger,
		now:     time.Now,
	}
}

// Limit rejects callers that exhausted their window with RATE_LIMIT_EXCEEDED.
// It must run after authentication; anonymous requests pass through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := contextutils.GetUserID(r.Context())
		if rl.cache == nil || rl.limit <= 0 || userID == 0 {
			next.ServeHTTP(w, r)
			return
		}

		result := rl.check(r.Context(), fmt.Sprintf("ratelimit:user:%d", userID))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			contextutils.GetLogger(r.Context(), rl.logger).Warn("Rate limit exceeded", zap.Int64("user_id", userID))
			rl.builder.WriteError(w, r, services.NewRateLimitError("too many requests, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) check(ctx context.Context, key string) *RateLimitResult {
	now := rl.now()
	windowStart := now.Truncate(rl.window)
	windowKey := fmt.Sprintf("%s:window:%d", key, windowStart.Unix())

	count := rl.getCount(ctx, windowKey)
	allowed := count < rl.limit
	if allowed {
		count++
		if err := rl.cache.Set(ctx, windowKey, []byte(strconv.Itoa(count)), rl.window); err != nil {
			rl.logger.Warn("Failed to record rate limit hit", zap.String("key", windowKey), zap.Error(err))
		}
	}

	resetTime := windowStart.Add(rl.window)
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      rl.limit,
		Remaining:  max(rl.limit-count, 0),
		ResetTime:  resetTime,
		RetryAfter: resetTime.Sub(now),
	}
}

func (rl *RateLimiter) getCount(ctx context.Context, key string) int {
	value, found := rl.cache.Get(ctx, key)
	if !found {
		return 0
	}
	count, err := strconv.Atoi(string(value))
	if err != nil {
		return 0
	}
	return count
}
