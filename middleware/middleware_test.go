package middleware

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/natours-go/apperror"
	"github.com/user/natours-go/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Permissions-Policy"))
}

func TestMaxBodyBytes(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 10)))
	rec := httptest.NewRecorder()
	MaxBodyBytes(16)(readAll).ServeHTTP(rec, small)
	assert.Equal(t, http.StatusOK, rec.Code)

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	rec = httptest.NewRecorder()
	MaxBodyBytes(16)(readAll).ServeHTTP(rec, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func newTestLimiter(maxRequests int) *RateLimiter {
	rl := NewRateLimiter(config.RateLimitConfig{
		MaxRequests: maxRequests,
		Window:      time.Hour,
	})
	return rl
}

func limiterRequest(t *testing.T, handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	req.RemoteAddr = remoteAddr
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := newTestLimiter(3)
	defer rl.Stop()
	responder := apperror.NewResponder(false, log.New(io.Discard, "", 0))
	handler := rl.Middleware(responder, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := limiterRequest(t, handler, "10.0.0.1:12345")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterRejectsOverBudget(t *testing.T) {
	rl := newTestLimiter(2)
	defer rl.Stop()
	responder := apperror.NewResponder(false, log.New(io.Discard, "", 0))

	limited := 0
	handler := rl.Middleware(responder, func() { limited++ })(okHandler())

	limiterRequest(t, handler, "10.0.0.1:12345")
	limiterRequest(t, handler, "10.0.0.1:12345")
	rec := limiterRequest(t, handler, "10.0.0.1:12345")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)

	var body apperror.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fail", body.Status)
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", body.Message)
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := newTestLimiter(1)
	defer rl.Stop()
	responder := apperror.NewResponder(false, log.New(io.Discard, "", 0))
	handler := rl.Middleware(responder, nil)(okHandler())

	assert.Equal(t, http.StatusOK, limiterRequest(t, handler, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, limiterRequest(t, handler, "10.0.0.1:2000").Code,
		"same IP different port shares a bucket")
	assert.Equal(t, http.StatusOK, limiterRequest(t, handler, "10.0.0.2:1000").Code,
		"a different IP gets its own bucket")

	assert.Equal(t, 2, rl.Size())
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := newTestLimiter(1)
	defer rl.Stop()
	responder := apperror.NewResponder(false, log.New(io.Discard, "", 0))
	handler := rl.Middleware(responder, nil)(okHandler())

	limiterRequest(t, handler, "10.0.0.1:1000")
	require.Equal(t, 1, rl.Size())

	// Make the entry look idle, then sweep.
	rl.mu.Lock()
	for _, cl := range rl.limiters {
		cl.lastAccess = time.Now().Add(-24 * time.Hour)
	}
	rl.mu.Unlock()

	rl.cleanup()
	assert.Equal(t, 0, rl.Size())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"10.0.0.1:12345", "10.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
		{"[::1]:8080", "[::1]"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remoteAddr
		assert.Equal(t, tt.want, clientIP(r))
	}
}
