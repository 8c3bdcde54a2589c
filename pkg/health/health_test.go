package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passingCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func fetchHealth(t *testing.T, h *Health, path string) (int, healthBody) {
	t.Helper()
	w := httptest.NewRecorder()
	h.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body healthBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLivez(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passingCheck())
	h.AddLivenessCheck("postgres", time.Second, failingCheck("connection refused"))

	code, body := fetchHealth(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code, "checks start healthy")
	assert.Equal(t, "ok", body.Status)

	runN(h.liveness[1], 2)
	code, _ = fetchHealth(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code, "below failure threshold")

	runN(h.liveness[1], 1)
	code, body = fetchHealth(t, h, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"postgres": "connection refused"}, body.Checks)
}

func TestReadyz(t *testing.T) {
	h := New()
	h.AddReadinessCheck("redis", time.Second, passingCheck())
	h.AddReadinessCheck("kafka", time.Second, failingCheck("no brokers"), WithThresholds(1, 1))

	code, body := fetchHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code, "not ready until marked")
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	code, _ = fetchHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.IsReady())

	runN(h.readiness[1], 1)
	code, body = fetchHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "kafka")
	assert.NotContains(t, body.Checks, "redis")
	assert.False(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckRecovery(t *testing.T) {
	failing := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(3, 2))
	c := h.liveness[0]

	runN(c, 3)
	assert.Equal(t, "down", c.failure())

	failing = false
	runN(c, 1)
	assert.NotEmpty(t, c.failure(), "one success is below the success threshold")
	runN(c, 1)
	assert.Empty(t, c.failure())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("concurrent", time.Second, failingCheck("err"))
	h.AddReadinessCheck("concurrent", time.Second, passingCheck())
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.Routes().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.Routes().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()

	h.Stop()
	h.Stop()
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(100000)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "exceeds threshold")

	assert.NoError(t, PingCheck(fakePinger{})(ctx))
	assert.EqualError(t, PingCheck(fakePinger{err: errors.New("refused")})(ctx), "refused")

	sessions := 3
	check := CapacityCheck("sessions", func() int { return sessions }, 3)
	assert.NoError(t, check(ctx))
	sessions = 4
	assert.EqualError(t, check(ctx), "4 sessions exceeds limit 3")
}
