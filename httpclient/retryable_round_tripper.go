/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/retry"
)

// Default parameter values for RetryableRoundTripper.
const (
	DefaultMaxRetryAttempts                  = 3
	DefaultExponentialBackoffInitialInterval = time.Second
	DefaultExponentialBackoffMultiplier      = 2
)

// UnlimitedRetryAttempts makes RetryableRoundTripper stop retries only by its backoff policy.
const UnlimitedRetryAttempts = -1

// RetryAttemptNumberHeader contains the serial number of the retry attempt.
const RetryAttemptNumberHeader = "X-Retry-Attempt"

// DefaultBackoffPolicy is an exponential policy used when nothing else is configured.
var DefaultBackoffPolicy retry.Policy = retry.ExponentialBackoffPolicy{
	InitialInterval: DefaultExponentialBackoffInitialInterval,
	Multiplier:      DefaultExponentialBackoffMultiplier,
}

var errRetryNeeded = errors.New("retry is needed")

// CheckRetryFunc is called after each attempt and determines if the next one is needed.
type CheckRetryFunc func(ctx context.Context, resp *http.Response, roundTripErr error, doneRetryAttempts int) (bool, error)

// RetryableRoundTripperOpts represents an options for RetryableRoundTripper.
type RetryableRoundTripperOpts struct {
	Logger         log.FieldLogger
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// MaxRetryAttempts limits retries. The request is sent at most MaxRetryAttempts+1 times.
	MaxRetryAttempts int

	CheckRetryFunc CheckRetryFunc

	// IgnoreRetryAfter disables using Retry-After header of the response as the next delay.
	IgnoreRetryAfter bool

	BackoffPolicy retry.Policy
}

// RetryableRoundTripper retries outgoing requests that failed with temporary errors.
type RetryableRoundTripper struct {
	Delegate         http.RoundTripper
	Logger           log.FieldLogger
	LoggerProvider   func(ctx context.Context) log.FieldLogger
	MaxRetryAttempts int
	CheckRetry       CheckRetryFunc
	IgnoreRetryAfter bool
	BackoffPolicy    retry.Policy
}

// NewRetryableRoundTripper returns a new RetryableRoundTripper with default options.
func NewRetryableRoundTripper(delegate http.RoundTripper) (*RetryableRoundTripper, error) {
	return NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{})
}

// NewRetryableRoundTripperWithOpts returns a new RetryableRoundTripper.
func NewRetryableRoundTripperWithOpts(
	delegate http.RoundTripper, opts RetryableRoundTripperOpts,
) (*RetryableRoundTripper, error) {
	if opts.MaxRetryAttempts < 0 && opts.MaxRetryAttempts != UnlimitedRetryAttempts {
		return nil, fmt.Errorf("incorrect max retry attempts %d", opts.MaxRetryAttempts)
	}
	if opts.MaxRetryAttempts == 0 {
		opts.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.CheckRetryFunc == nil {
		opts.CheckRetryFunc = DefaultCheckRetry
	}
	if opts.BackoffPolicy == nil {
		opts.BackoffPolicy = DefaultBackoffPolicy
	}
	return &RetryableRoundTripper{
		Delegate:         delegate,
		Logger:           opts.Logger,
		LoggerProvider:   opts.LoggerProvider,
		MaxRetryAttempts: opts.MaxRetryAttempts,
		CheckRetry:       opts.CheckRetryFunc,
		IgnoreRetryAfter: opts.IgnoreRetryAfter,
		BackoffPolicy:    opts.BackoffPolicy,
	}, nil
}

// RoundTrip performs the request, retrying it according to CheckRetry and the backoff policy.
// The last response (or error) is returned when retries are over.
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	logger := rt.logger(ctx)

	rewindReqBody := func(*http.Request) error { return nil }
	if req.Body != nil && req.Body != http.NoBody {
		originalBody := req.Body
		defer func() { _ = originalBody.Close() }() // Per RoundTripper contract.
		var err error
		if rewindReqBody, err = makeRequestBodyRewindable(req); err != nil {
			return nil, &RetryableRoundTripperError{Inner: err}
		}
	}

	bf := &retryAfterBackOff{BackOff: rt.BackoffPolicy.NewBackOff()}
	if rt.MaxRetryAttempts > 0 {
		bf.BackOff = backoff.WithMaxRetries(bf.BackOff, uint64(rt.MaxRetryAttempts))
	}

	var resp *http.Response
	var roundTripErr error
	attempt := 0
	reqCloned := false

	doErr := retry.DoWithBackOff(ctx, bf, nil, func(err error, wait time.Duration) {
		logger.Debug("retrying client http request",
			log.String("method", req.Method), log.Int("attempt", attempt), log.Duration("wait", wait))
	}, func(ctx context.Context) error {
		if attempt > 0 {
			if err := rewindReqBody(req); err != nil {
				logger.Error(fmt.Sprintf(
					"failed to rewind request body between retry attempts, %d request(s) done", attempt), log.Error(err))
				return backoff.Permanent(err)
			}
			if resp != nil && roundTripErr == nil {
				drainResponseBody(resp, logger)
			}
			if !reqCloned {
				req, reqCloned = req.Clone(ctx), true // Per RoundTripper contract.
			}
			req.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(attempt))
		}

		resp, roundTripErr = rt.Delegate.RoundTrip(req)
		needRetry, checkErr := rt.CheckRetry(ctx, resp, roundTripErr, attempt)
		attempt++
		if checkErr != nil {
			logger.Error(fmt.Sprintf(
				"failed to check if retry is needed, %d request(s) done", attempt), log.Error(checkErr))
			return backoff.Permanent(checkErr)
		}
		if !needRetry {
			return nil
		}
		bf.retryAfter = 0
		if resp != nil && !rt.IgnoreRetryAfter {
			bf.retryAfter, _ = parseRetryAfterFromResponse(resp)
		}
		return errRetryNeeded
	})

	switch {
	case errors.Is(doErr, errRetryNeeded):
		logger.Warn(fmt.Sprintf("retry attempts are over, %d request(s) done", attempt))
	case doErr != nil && ctx.Err() != nil:
		logger.Warn(fmt.Sprintf(
			"context canceled (%v) while waiting for the next retry attempt, %d request(s) done", ctx.Err(), attempt))
	}
	return resp, roundTripErr
}

func (rt *RetryableRoundTripper) logger(ctx context.Context) log.FieldLogger {
	if rt.LoggerProvider != nil {
		if l := rt.LoggerProvider(ctx); l != nil {
			return l
		}
	}
	return rt.Logger
}

// retryAfterBackOff replaces the next delay with the one from Retry-After header when it's known.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.retryAfter <= 0 {
		return next
	}
	return b.retryAfter
}

// RetryableRoundTripperError is returned when the request cannot be prepared for retries.
type RetryableRoundTripperError struct {
	Inner error
}

func (e *RetryableRoundTripperError) Error() string {
	return fmt.Sprintf("retryable round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RetryableRoundTripperError) Unwrap() error {
	return e.Inner
}

// DefaultCheckRetry retries temporary network errors, 429 and 5xx responses.
// Requests with unsafe methods are retried only when marked with NewContextWithIdempotentHint,
// since a console user's POST must not be silently repeated.
func DefaultCheckRetry(
	ctx context.Context, resp *http.Response, roundTripErr error, _ int,
) (needRetry bool, err error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if roundTripErr != nil {
		return CheckErrorIsTemporary(roundTripErr), nil
	}
	if resp == nil {
		return false, errors.New("both response and round trip error are nil")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode < http.StatusInternalServerError {
		return false, nil
	}
	return isIdempotentMethod(resp.Request) || GetIdempotentHintFromContext(ctx), nil
}

func isIdempotentMethod(r *http.Request) bool {
	if r == nil {
		return false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// CheckErrorIsTemporary checks either error is temporary or not.
func CheckErrorIsTemporary(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var terr interface{ Temporary() bool }
	return errors.As(err, &terr) && terr.Temporary()
}

func parseRetryAfterFromResponse(resp *http.Response) (time.Duration, bool) {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	t, err := http.ParseTime(val)
	if err != nil {
		return 0, false
	}
	return time.Until(t), true
}
