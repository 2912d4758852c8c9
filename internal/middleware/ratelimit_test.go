package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radiusdt/mediaplan/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newLimited(cfg config.RateLimitConfig) (*RateLimitMiddleware, *fakeRecorder, http.Handler) {
	fr := &fakeRecorder{}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop())
	rl.SetMetrics(fr)
	return rl, fr, rl.Handler(okHandler)
}

func serve(h http.Handler, path, remote string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitGlobalBucket(t *testing.T) {
	_, fr, h := newLimited(config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2, LookupRPS: 1, LookupBurst: 1})

	assert.Equal(t, http.StatusOK, serve(h, "/v1/sources", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, serve(h, "/v1/sources", "10.0.0.2:1000"))
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "/v1/sources", "10.0.0.3:1000"))
	assert.Equal(t, []string{"/v1/sources"}, fr.limited)
}

func TestRateLimitLookupPerIP(t *testing.T) {
	rl, fr, h := newLimited(config.RateLimitConfig{Enabled: true, RPS: 1000, Burst: 1000, LookupRPS: 0.001, LookupBurst: 1})
	path := LookupPathPrefix + "detect"

	assert.Equal(t, http.StatusOK, serve(h, path, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, serve(h, path, "10.0.0.1:2000"))
	assert.Equal(t, http.StatusOK, serve(h, path, "10.0.0.2:1000"))
	assert.Len(t, fr.limited, 1)

	// Plan endpoints do not share the lookup bucket.
	assert.Equal(t, http.StatusOK, serve(h, "/v1/sources", "10.0.0.1:1000"))

	assert.Equal(t, 0, rl.CleanupIPLimiters(time.Hour))
	assert.Equal(t, 2, rl.CleanupIPLimiters(-time.Second))
}

func TestRateLimitDisabled(t *testing.T) {
	_, _, h := newLimited(config.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 0})
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(h, "/v1/sources", "10.0.0.1:1000"))
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
