package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then records the
// request when the window still has room. It returns {allowed, count,
// oldest score}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '0', ARGV[2])
local current = redis.call('ZCARD', key)
local allowed = 0
if current < limit then
	redis.call('ZADD', key, ARGV[1], ARGV[5])
	current = current + 1
	allowed = 1
end
redis.call('PEXPIRE', key, ARGV[4])

local oldest = redis.call('ZRANGE', key, '0', '0', 'WITHSCORES')
local oldest_score = tonumber(ARGV[1])
if oldest[2] then
	oldest_score = tonumber(oldest[2])
end
return {allowed, current, oldest_score}
`)

// RedisLimiter implements a Redis-backed sliding window rate limiter
// shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

// NewRedisLimiter creates a sliding window limiter over client. Keys are
// stored under prefix.
func NewRedisLimiter(client *redis.Client, config Config, prefix string) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}
	return &RedisLimiter{client: client, config: config, prefix: prefix}, nil
}

// Allow records a request for key if the current window has room
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := time.Now()
	windowStart := now.Add(-r.config.Window)

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMicro(),
		windowStart.UnixMicro(),
		r.config.Limit,
		r.config.Window.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return nil, errors.New("unexpected redis script result")
	}

	remaining := r.config.Limit - int(result[1])
	if remaining < 0 {
		remaining = 0
	}

	return &Info{
		Limit:     r.config.Limit,
		Remaining: remaining,
		ResetAt:   time.UnixMicro(result[2]).Add(r.config.Window),
		Allowed:   result[0] == 1,
	}, nil
}

// Reset removes all rate limit data for the given key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the Redis client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
