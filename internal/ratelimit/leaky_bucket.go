/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

// LeakyBucketLimiter is a GCRA limiter from throttled backed by an in-memory store.
// maxBurst requests above the steady rate are admitted at once.
type LeakyBucketLimiter struct {
	gcra *throttled.GCRARateLimiterCtx
}

// NewLeakyBucketLimiter creates a LeakyBucketLimiter tracking at most maxKeys keys (0 means one).
func NewLeakyBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*LeakyBucketLimiter, error) {
	store, err := memstore.NewCtx(maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	gcra, err := throttled.NewGCRARateLimiterCtx(store, throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &LeakyBucketLimiter{gcra: gcra}, nil
}

// Allow takes one token for key.
func (l *LeakyBucketLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	limited, res, err := l.gcra.RateLimitCtx(ctx, key, 1)
	switch {
	case err != nil:
		return false, 0, err
	case limited:
		return false, res.RetryAfter, nil
	default:
		return true, 0, nil
	}
}
