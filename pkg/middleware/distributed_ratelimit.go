package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// fixedWindow increments the counter for KEYS[1], starting a new window of
// ARGV[1] milliseconds on the first hit, and returns the count and remaining TTL
var fixedWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// DistributedRateLimiter implements rate limiting using Redis
// This allows rate limits to be shared across multiple instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config RateLimitConfig, prefix string) *DistributedRateLimiter {
	if prefix == "" {
		prefix = "forum:ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config.normalized(),
		prefix: prefix,
	}
}

// Config returns the limiter configuration
func (rl *DistributedRateLimiter) Config() RateLimitConfig {
	return rl.config
}

func (rl *DistributedRateLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// Allow counts a request against the current window for key.
// Callers should let the request through when an error is returned.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Result, error) {
	res := Result{Limit: rl.config.Requests}

	raw, err := fixedWindow.Run(ctx, rl.redis, []string{rl.key(key)}, rl.config.Window.Milliseconds()).Result()
	if err != nil {
		return res, fmt.Errorf("redis error: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return res, fmt.Errorf("unexpected rate limit reply %v", raw)
	}
	count, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	ttl := time.Duration(ttlMillis) * time.Millisecond
	if ttl <= 0 {
		ttl = rl.config.Window
	}

	res.ResetAfter = ttl
	res.Remaining = max(rl.config.Requests-int(count), 0)
	res.Allowed = count <= int64(rl.config.Requests)
	if !res.Allowed {
		res.RetryAfter = ttl
	}

	return res, nil
}
