/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides keyed rate limiters (leaky bucket and sliding window)
// used to protect request submission endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Limiter interface defines the rate limiting contract.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// Alg represents a rate-limiting algorithm.
type Alg string

// Supported rate-limiting algorithms.
const (
	AlgLeakyBucket   Alg = "leaky_bucket"
	AlgSlidingWindow Alg = "sliding_window"
)

// NewLimiter creates a limiter of the given algorithm.
// maxKeys limits the number of tracked keys, zero means the single global key.
func NewLimiter(alg Alg, maxRate Rate, maxBurst, maxKeys int) (Limiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d per %s", maxRate.Count, maxRate.Duration)
	}
	switch alg {
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(maxRate, maxBurst, maxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(maxRate, maxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limit alg %q", alg)
	}
}
