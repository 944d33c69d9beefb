/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Defaults of RateLimitingRoundTripperOpts.
const (
	DefaultRateLimitingBurst       = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

// RateLimitingRoundTripperOpts configures NewRateLimitingRoundTripperWithOpts. Zero values mean defaults.
type RateLimitingRoundTripperOpts struct {
	Burst       int
	WaitTimeout time.Duration
}

// RateLimitingRoundTripper paces outgoing requests to RateLimit per second,
// so a large batch of queued console requests does not hammer the target API.
type RateLimitingRoundTripper struct {
	Delegate    http.RoundTripper
	RateLimit   int
	Burst       int
	WaitTimeout time.Duration

	limiter *rate.Limiter
}

// NewRateLimitingRoundTripper paces requests with default burst and wait timeout.
func NewRateLimitingRoundTripper(delegate http.RoundTripper, rateLimit int) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, rateLimit, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts paces requests to rateLimit per second.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, rateLimit int, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	switch {
	case rateLimit <= 0:
		return nil, fmt.Errorf("rate limit must be positive, got %d", rateLimit)
	case opts.Burst < 0:
		return nil, fmt.Errorf("burst must not be negative, got %d", opts.Burst)
	}
	rt := &RateLimitingRoundTripper{
		Delegate:    delegate,
		RateLimit:   rateLimit,
		Burst:       opts.Burst,
		WaitTimeout: opts.WaitTimeout,
	}
	if rt.Burst == 0 {
		rt.Burst = DefaultRateLimitingBurst
	}
	if rt.WaitTimeout == 0 {
		rt.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	rt.limiter = rate.NewLimiter(rate.Limit(rateLimit), rt.Burst)
	return rt, nil
}

// RoundTrip waits for a slot at most WaitTimeout. A caller cancellation is returned as is.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := rt.wait(r.Context()); err != nil {
		if r.Body != nil {
			_ = r.Body.Close()
		}
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RateLimitingWaitError{Inner: err}
	}
	return rt.Delegate.RoundTrip(r)
}

func (rt *RateLimitingRoundTripper) wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rt.WaitTimeout)
	defer cancel()
	return rt.limiter.Wait(ctx)
}

// RateLimitingWaitError means the request gave up waiting for a pacing slot.
type RateLimitingWaitError struct {
	Inner error
}

func (e *RateLimitingWaitError) Error() string {
	return "wait due to client side rate limiting: " + e.Inner.Error()
}

func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
