// Package ratelimit limits requests per client key, in memory or in Redis.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
	Close() error
}

// Info contains information about the current rate limit state
type Info struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when a request will next be allowed
	ResetAt time.Time
	Allowed bool
}

// Config is shared by both limiters: Limit requests per Window.
type Config struct {
	Limit  int
	Window time.Duration
}

// DefaultConfig allows 100 requests per minute
func DefaultConfig() Config {
	return Config{Limit: 100, Window: time.Minute}
}
