package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenBucket is a per-key token bucket kept in redis, refilled at
// RefillRate tokens per second up to Capacity. The check-and-take runs as a
// single Lua script so concurrent API replicas share one budget.
type RedisTokenBucket struct {
	Redis      *redis.Client
	Prefix     string
	Capacity   int
	RefillRate float64
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])

if tokens == nil then tokens = capacity end
if last == nil then last = now end

local elapsed = now - last
if elapsed < 0 then elapsed = 0 end

tokens = tokens + elapsed * refill_rate
if tokens > capacity then tokens = capacity end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call('HSET', key, 'tokens', tokens, 'last', now)
redis.call('EXPIRE', key, ttl)

return allowed
`)

// Allow takes one token for key, reporting whether the request may proceed.
// An unconfigured bucket allows everything.
func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	if b.Redis == nil || b.Capacity <= 0 || b.RefillRate <= 0 {
		return true, nil
	}

	now := float64(time.Now().UnixNano()) / 1e9
	ttl := int64(float64(b.Capacity)/b.RefillRate) + 1

	fullKey := key
	if b.Prefix != "" {
		fullKey = b.Prefix + ":" + key
	}

	allowed, err := tokenBucketScript.Run(ctx, b.Redis, []string{fullKey},
		b.Capacity, b.RefillRate, now, ttl).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}
	return allowed == 1, nil
}

// RateLimitMiddleware rejects requests once the caller's bucket is drained.
// A request whose key cannot be derived is passed through.
func RateLimitMiddleware(b *RedisTokenBucket, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if keyFn != nil {
				key = keyFn(r)
			}
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := b.Allow(r.Context(), key)
			if err != nil {
				WriteJSONError(w, r, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter unavailable")
				return
			}
			if !allowed {
				WriteJSONError(w, r, http.StatusTooManyRequests, "rate_limited", "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
