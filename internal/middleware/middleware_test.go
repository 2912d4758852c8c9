package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radiusdt/mediaplan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRecorder struct {
	requests  []string
	statuses  []int
	authFails []string
	limited   []string
}

func (f *fakeRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.requests = append(f.requests, method+" "+route)
	f.statuses = append(f.statuses, status)
}

func (f *fakeRecorder) RecordAuthFailure(reason string) { f.authFails = append(f.authFails, reason) }

func (f *fakeRecorder) RecordRateLimitHit(route string) { f.limited = append(f.limited, route) }

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("debug", format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}

	logger, err := NewLogger("bogus", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := NewRecoveryMiddleware(zap.New(core)).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLoggingMiddlewareRecordsRoutePattern(t *testing.T) {
	fr := &fakeRecorder{}
	lm := NewLoggingMiddleware(zap.NewNop())
	lm.SetMetrics(fr)

	mux := http.NewServeMux()
	mux.Handle("GET /v1/sources", okHandler)
	h := lm.Handler(mux)

	for _, path := range []string{"/v1/sources", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, fr.statuses)
	assert.Equal(t, []string{"GET /v1/sources", "GET unmatched"}, fr.requests)
}

func TestLoggingMiddlewareResolvesRouteBehindAuth(t *testing.T) {
	fr := &fakeRecorder{}
	mux := http.NewServeMux()
	mux.Handle("/v1/plans/calculate", okHandler)

	lm := NewLoggingMiddleware(zap.NewNop())
	lm.SetMetrics(fr)
	lm.SetRouter(mux)
	auth := NewAuthMiddleware(config.AuthConfig{Enabled: true, APIKey: "k"}, zap.NewNop())
	h := lm.Handler(auth.Handler(mux))

	req := httptest.NewRequest(http.MethodPost, "/v1/plans/calculate", nil)
	req.Header.Set(AuthHeaderName, "k")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"POST /v1/plans/calculate"}, fr.requests)
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewLoggingMiddleware(zap.New(core)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, APIKey: "secret", SkipPaths: []string{"/health"}}

	tests := []struct {
		name   string
		target string
		header string
		want   int
		reason string
	}{
		{"header key", "/v1/sources", "secret", http.StatusOK, ""},
		{"query key", "/v1/sources?api_key=secret", "", http.StatusOK, ""},
		{"skipped path", "/health", "", http.StatusOK, ""},
		{"missing key", "/v1/sources", "", http.StatusUnauthorized, "missing"},
		{"wrong key", "/v1/sources", "nope", http.StatusUnauthorized, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRecorder{}
			am := NewAuthMiddleware(cfg, zap.NewNop())
			am.SetMetrics(fr)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			am.Handler(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.reason != "" {
				assert.Equal(t, []string{tt.reason}, fr.authFails)
				assert.Equal(t, "ApiKey", rec.Header().Get("WWW-Authenticate"))
			} else {
				assert.Empty(t, fr.authFails)
			}
		})
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	am := NewAuthMiddleware(config.AuthConfig{Enabled: false}, zap.NewNop())
	rec := httptest.NewRecorder()
	am.Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/plans/calculate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
