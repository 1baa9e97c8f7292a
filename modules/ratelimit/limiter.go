package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// slidingWindowScript drops attempts older than the window, then admits the
// new attempt when the set is below the limit. Replies {allowed, remaining,
// retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local attempts = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local max_attempts = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', attempts, 0, now_ms - window_ms)
local used = redis.call('ZCARD', attempts)

if used >= max_attempts then
	local first = redis.call('ZRANGE', attempts, 0, 0, 'WITHSCORES')
	local wait_ms = 0
	if first[2] then
		wait_ms = tonumber(first[2]) + window_ms - now_ms
	end
	return {0, 0, wait_ms}
end

redis.call('ZADD', attempts, now_ms, member)
redis.call('PEXPIRE', attempts, window_ms)
return {1, max_attempts - used - 1, 0}
`)

// SlidingWindowLimiter counts attempts per key in a Redis sorted set.
type SlidingWindowLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(client redis.Scripter, limit int, window time.Duration, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
	}
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	redisKey := l.prefix + key

	result, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey},
		now.UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		uuid.NewString(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	if len(result) != 3 {
		return nil, fmt.Errorf("rate limit script returned %d values, want 3", len(result))
	}
	var reply [3]int64
	for i, v := range result {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("rate limit script value %d has type %T", i, v)
		}
		reply[i] = n
	}
	allowed, remaining, retryAfterMs := reply[0], reply[1], reply[2]

	res := &Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   now.Add(l.window),
	}
	if !res.Allowed && retryAfterMs > 0 {
		res.RetryAfter = time.Duration(retryAfterMs) * time.Millisecond
	}
	return res, nil
}
