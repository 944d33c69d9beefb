/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/acronis/go-apiconsole/lrucache"
)

// SlidingWindowLimiter implements sliding window rate limiting algorithm.
// Per-key windows are kept in an LRU cache.
type SlidingWindowLimiter struct {
	getLimiter func(key string) *slidingwindow.Limiter
	maxRate    Rate
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	newWindowLimiter := func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(maxRate.Duration, int64(maxRate.Count),
			func() (slidingwindow.Window, slidingwindow.StopFunc) {
				return slidingwindow.NewLocalWindow()
			})
		return lim
	}

	if maxKeys == 0 {
		lim := newWindowLimiter()
		return &SlidingWindowLimiter{maxRate: maxRate, getLimiter: func(string) *slidingwindow.Limiter { return lim }}, nil
	}

	keys, err := lrucache.New[string, *slidingwindow.Limiter](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for keys: %w", err)
	}
	return &SlidingWindowLimiter{
		maxRate: maxRate,
		getLimiter: func(key string) *slidingwindow.Limiter {
			lim, _ := keys.GetOrAdd(key, newWindowLimiter)
			return lim
		},
	}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
// retryAfter is the time left till the end of the current window.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	if l.getLimiter(key).Allow() {
		return true, 0, nil
	}
	now := time.Now()
	return false, now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now), nil
}
