package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecomission/internal/cache"
	"ecomission/internal/contextutils"
	"ecomission/internal/models"
	"ecomission/internal/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, limit int, now *time.Time) *RateLimiter {
	t.Helper()
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	rl := NewRateLimiter(c, limit, time.Minute, response.NewBuilder(response.DefaultConfig(), zap.NewNop()), zap.NewNop())
	rl.now = func() time.Time { return *now }
	return rl
}

func limitedRequest(rl *RateLimiter, userID int64) *httptest.ResponseRecorder {
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	if userID != 0 {
		req = req.WithContext(contextutils.WithActor(context.Background(), models.Actor{UserID: userID, Role: models.RoleStudent}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 10, 0, time.UTC)
	rl := newTestLimiter(t, 2, &now)

	rec := limitedRequest(rl, 1)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, limitedRequest(rl, 1).Code)

	rec = limitedRequest(rl, 1)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "51", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"RATE_LIMIT_EXCEEDED"`)

	// other users keep their own budget
	assert.Equal(t, http.StatusNoContent, limitedRequest(rl, 2).Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, limitedRequest(rl, 1).Code)
}

func TestRateLimiterPassThrough(t *testing.T) {
	now := time.Now()

	rl := newTestLimiter(t, 1, &now)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, limitedRequest(rl, 0).Code)
	}

	disabled := newTestLimiter(t, 0, &now)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, limitedRequest(disabled, 9).Code)
	}

	noCache := NewRateLimiter(nil, 1, time.Minute, response.NewBuilder(response.DefaultConfig(), zap.NewNop()), zap.NewNop())
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, limitedRequest(noCache, 9).Code)
	}
}
