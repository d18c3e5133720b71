// Package ratelimit provides per-key token bucket rate limiting for the
// MCP tools and the local visualization API.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited is wrapped by every rate limit error.
var ErrLimited = errors.New("rate limit exceeded")

// Tool names, shared with the MCP server.
const (
	ToolDeposit  = "geomood_deposit"
	ToolList     = "geomood_list"
	ToolCore     = "geomood_core"
	ToolGems     = "geomood_gems"
	ToolAppraise = "geomood_appraise"
	ToolSurface  = "geomood_surface"
	ToolBackup   = "geomood_backup"
	ToolRestore  = "geomood_restore"
)

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute is NewLimiter with the rate given in requests per minute.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// Allow checks if a request for the given key should be allowed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter returns how long key must wait for its next token. It is
// zero when a request would be allowed now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens >= 1.0 || l.rate <= 0 {
		return 0
	}
	missing := 1.0 - b.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}

// refill returns key's bucket topped up for the time since its last use.
// l.mu must be held.
func (l *Limiter) refill(key string) *bucket {
	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
		return b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}
	return b
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Appraisal calls a paid model, so it is the tightest.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolDeposit:  PerMinute(10, 3),
		ToolList:     PerMinute(60, 10),
		ToolCore:     PerMinute(30, 5),
		ToolGems:     PerMinute(60, 10),
		ToolAppraise: PerMinute(6, 2),
		ToolSurface:  PerMinute(60, 10),
		ToolBackup:   PerMinute(5, 2),
		ToolRestore:  PerMinute(5, 2),
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error wrapping ErrLimited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrLimited, toolName)
	}

	return nil
}
