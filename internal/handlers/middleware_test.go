package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerClientAndRoute(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	limited := rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(path, addr string) int {
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		limited(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, call("/order", "203.0.113.7:4242"))
	assert.Equal(t, http.StatusTooManyRequests, call("/order", "203.0.113.7:4242"))

	// A different route is a separate window for the same client.
	assert.Equal(t, http.StatusNoContent, call("/status-request", "203.0.113.7:4242"))

	// Another client is unaffected.
	assert.Equal(t, http.StatusNoContent, call("/order", "198.51.100.9:1234"))
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
}
