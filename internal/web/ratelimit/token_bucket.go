package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// TokenBucket implements an in-memory token bucket rate limiter. A bucket
// holds at most Limit tokens and refills Limit tokens per Window.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  Config
	now     func() time.Time

	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a token bucket limiter. Idle buckets are dropped
// every two windows.
func NewTokenBucket(config Config) (*TokenBucket, error) {
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	tb := &TokenBucket{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
		cleanup: time.NewTicker(2 * config.Window),
		done:    make(chan struct{}),
	}
	go tb.cleanupLoop()
	return tb, nil
}

// Allow takes one token from the bucket of key
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	capacity := float64(tb.config.Limit)
	perToken := tb.config.Window / time.Duration(tb.config.Limit)

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+capacity*elapsed.Seconds()/tb.config.Window.Seconds())
		b.lastRefill = now
	}

	info := &Info{Limit: tb.config.Limit}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(b.tokens)
	info.ResetAt = now
	if b.tokens < 1 {
		info.ResetAt = now.Add(time.Duration((1 - b.tokens) * float64(perToken)))
	}
	return info, nil
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.dropIdle()
		case <-tb.done:
			return
		}
	}
}

// dropIdle removes buckets untouched for two windows; they are full again.
func (tb *TokenBucket) dropIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	threshold := 2 * tb.config.Window
	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.lastRefill) > threshold {
			delete(tb.buckets, key)
		}
	}
}

// Len returns the number of tracked keys
func (tb *TokenBucket) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.buckets)
}

// Close stops the cleanup goroutine
func (tb *TokenBucket) Close() error {
	tb.once.Do(func() {
		close(tb.done)
		tb.cleanup.Stop()
	})
	return nil
}
