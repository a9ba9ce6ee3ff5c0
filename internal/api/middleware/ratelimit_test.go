package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"repayment-engine/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.RateLimitConfig{
		Enabled: true,
		RPS:     1,
		Burst:   2,
	}

	middleware := NewRateLimiterMiddleware(cfg, logger)
	defer middleware.Stop()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Middleware(nextHandler)

	t.Run("allows requests under the rate limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("blocks requests exceeding the rate limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"

		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req)
		assert.Equal(t, http.StatusOK, rec1.Code)

		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req)
		assert.Equal(t, http.StatusTooManyRequests, rec2.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(rec2.Body).Decode(&response))
		assert.Equal(t, false, response["success"])
		assert.Equal(t, "Rate limit exceeded", response["message"])
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("extractIP handles various headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
		assert.Equal(t, "192.168.1.1", middleware.extractIP(req))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		assert.Equal(t, "10.0.0.1", middleware.extractIP(req))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		assert.Equal(t, "127.0.0.1", middleware.extractIP(req))
	})
}

func TestRateLimiterMiddleware_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	middleware := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}, logger)
	defer middleware.Stop()

	handler := middleware.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterMiddleware_EvictIdle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	middleware := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}, logger)
	middleware.Stop()
	middleware.Stop()

	middleware.getLimiter("127.0.0.1").Allow()
	middleware.getLimiter("10.0.0.1")

	middleware.evictIdle(time.Now())
	_, busy := middleware.limiters.Load("127.0.0.1")
	_, idle := middleware.limiters.Load("10.0.0.1")
	assert.True(t, busy)
	assert.False(t, idle)

	middleware.evictIdle(time.Now().Add(2 * time.Second))
	_, busy = middleware.limiters.Load("127.0.0.1")
	assert.False(t, busy)
}
