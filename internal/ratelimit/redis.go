package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter is a fixed-window counter shared by every gateway process
// using the same Redis. Any Redis failure falls back to the local limiter.
type RedisLimiter struct {
	Client   *redis.Client
	Window   time.Duration
	Limit    int
	Prefix   string
	Fallback Limiter
	Logger   zerolog.Logger
}

// NewRedis sizes the window so that burst requests are allowed per window
// and the long-run average matches perSecond.
func NewRedis(client *redis.Client, perSecond, burst int) *RedisLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = perSecond
	}
	window := time.Duration(float64(burst) / float64(perSecond) * float64(time.Second))
	return &RedisLimiter{
		Client:   client,
		Window:   window,
		Limit:    burst,
		Prefix:   "privgate:rl:",
		Fallback: NewTokenBucket(perSecond, burst),
		Logger:   zerolog.Nop(),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	if l.Client == nil {
		return l.fallback(ctx, key)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := windowScript.Run(ctx, l.Client, []string{l.Prefix + key}, l.Window.Milliseconds()).Result()
	if err != nil {
		l.Logger.Warn().Err(err).Msg("redis rate limit unavailable; using local limiter")
		return l.fallback(ctx, key)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return l.fallback(ctx, key)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = l.Window.Milliseconds()
	}
	remaining := l.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{Allowed: int(count) <= l.Limit, Limit: l.Limit, Remaining: remaining}
	if !d.Allowed {
		d.RetryAfter = time.Duration(ttlMs) * time.Millisecond
	}
	return d
}

func (l *RedisLimiter) fallback(ctx context.Context, key string) Decision {
	if l.Fallback != nil {
		return l.Fallback.Allow(ctx, key)
	}
	return Decision{Allowed: true, Limit: l.Limit, Remaining: l.Limit}
}
