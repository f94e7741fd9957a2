package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimiterInternal = errors.New("internal error")
	ErrRateLimiterExceeded = errors.New("rate limit exceeded")
)

// script refills and takes one token from a bucket atomically.
const script = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local refill_period = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local periods = math.floor((now - last_refill) / refill_period)
	if periods > 0 then
		tokens = math.min(capacity, tokens + periods * refill_rate)
		last_refill = last_refill + periods * refill_period
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, refill_period * 2)
	return allowed
`

// RateLimiter implements a Redis-based token bucket rate limiter
type RateLimiter struct {
	logger *slog.Logger
	client *redis.Client
	config config.RateLimiter
}

// NewRateLimiter creates a new rate limiter sharing the cache's redis client.
func NewRateLimiter(logger *slog.Logger, cache *Cache, cfg config.RateLimiter) RateLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rate_limit:"
	}

	return RateLimiter{
		logger: logger,
		client: cache.rdb,
		config: cfg,
	}
}

// Allow checks if a request is allowed for the given key
func (rl RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.config.KeyPrefix + key
	now := time.Now().Unix()

	result, err := rl.client.Eval(ctx, script, []string{redisKey},
		rl.config.Capacity,
		rl.config.RefillRate,
		int(rl.config.RefillPeriod.Seconds()),
		now,
	).Int64()

	if err != nil {
		rl.logger.Error("redis eval failed", "error", err)
		return false, ErrRateLimiterInternal
	}

	return result == 1, nil
}

// Middleware applies the token bucket per client address.
func (rl RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.Allow(r.Context(), clientKey(r))
		if err != nil {
			writeLimiterError(w, http.StatusInternalServerError, err)
			return
		}
		if !allowed {
			writeLimiterError(w, http.StatusTooManyRequests, ErrRateLimiterExceeded)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeLimiterError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}
