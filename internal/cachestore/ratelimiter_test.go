package cachestore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rl := NewRateLimiter(logger, c, config.RateLimiter{
		Capacity:     2,
		RefillRate:   1,
		RefillPeriod: time.Hour,
	})

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "client")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "client")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = rl.Allow(ctx, "other-client")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRateLimiter_Middleware(t *testing.T) {
	c, _ := newTestCache(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rl := NewRateLimiter(logger, c, config.RateLimiter{
		Capacity:     1,
		RefillRate:   1,
		RefillPeriod: time.Hour,
	})
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/tiny", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.JSONEq(t, `{"message":"rate limit exceeded"}`, rec.Body.String())
}
