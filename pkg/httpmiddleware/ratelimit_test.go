package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limited(t *testing.T, cfg RateLimitConfig) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimit(ctx, cfg)(okHandler())
}

func send(h http.Handler, mutate func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/sessions", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := limited(t, RateLimitConfig{Max: 5, Window: time.Minute})

	for i := range 5 {
		w := send(h, nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := limited(t, RateLimitConfig{Max: 2, Window: time.Minute})

	assert.Equal(t, "1", send(h, nil).Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "0", send(h, nil).Header().Get("X-RateLimit-Remaining"))

	w := send(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_PerBuyer(t *testing.T) {
	h := limited(t, RateLimitConfig{Max: 1, Window: time.Minute})

	assert.Equal(t, http.StatusOK, send(h, bearer("buyer-a")).Code)
	assert.Equal(t, http.StatusOK, send(h, bearer("buyer-b")).Code, "same address, different buyer")
	assert.Equal(t, http.StatusTooManyRequests, send(h, bearer("buyer-a")).Code)
	assert.Equal(t, http.StatusOK, send(h, nil).Code, "anonymous requests are keyed by address")
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	h := limited(t, RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Session") },
	})
	session := func(id string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Session", id) }
	}

	assert.Equal(t, http.StatusOK, send(h, session("s1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, session("s1")).Code)
	assert.Equal(t, http.StatusOK, send(h, session("s2")).Code)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for range 4 {
		_, _, ok := l.take("k", start)
		require.True(t, ok)
	}
	_, _, ok := l.take("k", start.Add(30*time.Second))
	assert.False(t, ok)

	// Half way into the next window, half of the previous count still applies.
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.True(t, ok)
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.True(t, ok)
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.False(t, ok)

	l.sweep(start.Add(5 * time.Minute))
	assert.Empty(t, l.windows)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4444"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, "203.0.113.50", ClientIP(req))
}

func TestBuyerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4444"
	assert.Equal(t, "ip:10.0.0.1", BuyerKey(req))

	req.Header.Set("Authorization", "Bearer buyer-a")
	key := BuyerKey(req)
	assert.Equal(t, "buyer:"+TokenHash("buyer-a")[:16], key)

	req.Header.Set("Authorization", "Bearer  buyer-a ")
	assert.Equal(t, key, BuyerKey(req), "surrounding spaces are not part of the token")

	assert.Len(t, TokenHash("buyer-a"), 64)
	assert.NotEqual(t, TokenHash("buyer-a"), TokenHash("buyer-b"))
}
