package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assetflow/backend/internal/auth"
	"github.com/assetflow/backend/internal/domain"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 5, BurstSize: 10})
	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("user:alpha"), "call %d should pass", i+1)
	}
}

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 2, BurstSize: 4})
	for i := 0; i < 4; i++ {
		rl.Allow("user:beta")
	}
	assert.False(t, rl.Allow("user:beta"))
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})
	assert.True(t, rl.Allow("user:a"))
	assert.False(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:b"))
}

func TestRateLimiter_Middleware429(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}

func TestClientKey_PrefersClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	assert.Equal(t, "ip:10.0.0.1", clientKey(req))

	req = req.WithContext(auth.WithClaims(req.Context(), &domain.UserClaims{UserID: "u-1"}))
	assert.Equal(t, "user:u-1", clientKey(req))
}

func TestRateLimiter_Stats(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 10})
	rl.Allow("user:x")
	stats := rl.Stats()
	assert.Equal(t, 1, stats["active_windows"])
	assert.Equal(t, 10, stats["max_calls_per_min"])
}
