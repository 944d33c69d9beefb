/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with backoff policies.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable reports whether the error is temporary and the operation may be repeated.
type IsRetryable func(error) bool

// RetryableFunc is an operation that may be repeated.
type RetryableFunc func(ctx context.Context) error

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc is an adapter to allow the use of ordinary functions as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy interface.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoWithRetry runs fn until it succeeds, fails with a non-retryable error, the policy gives up or ctx is done.
// A nil isRetryable treats every error as retryable. notify (may be nil) is called before each retry.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	return DoWithBackOff(ctx, p.NewBackOff(), isRetryable, notify, fn)
}

// DoWithBackOff is like DoWithRetry but uses the already constructed backoff.
func DoWithBackOff(ctx context.Context, b backoff.BackOff, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(b, ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, bctx, notify)
}

// ExponentialBackoffPolicy repeats up to maxAttempts times with exponentially growing delays.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxAttempts     int
}

// NewExponentialBackoffPolicy returns an exponential backoff policy (1.5 multiplier).
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{InitialInterval: initialInterval, Multiplier: backoff.DefaultMultiplier, MaxAttempts: maxAttempts}
}

// NewBackOff implements Policy interface.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.MaxElapsedTime = 0
	return withMaxAttempts(eb, p.MaxAttempts)
}

// ConstantBackoffPolicy repeats up to maxAttempts times with a constant delay.
type ConstantBackoffPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// NewConstantBackoffPolicy returns a constant backoff policy.
func NewConstantBackoffPolicy(interval time.Duration, maxAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{Interval: interval, MaxAttempts: maxAttempts}
}

// NewBackOff implements Policy interface.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return withMaxAttempts(backoff.NewConstantBackOff(p.Interval), p.MaxAttempts)
}

func withMaxAttempts(b backoff.BackOff, maxAttempts int) backoff.BackOff {
	if maxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxAttempts))
	}
	b.Reset()
	return b
}
