/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/acronis/go-apiconsole/internal/ratelimit"
	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/restapi"
)

// DefaultRateLimitMaxKeys bounds the number of clients tracked by a keyed limiter.
const DefaultRateLimitMaxKeys = 10000

// RateLimitLogFieldKey is the log field that carries the limiting key.
const RateLimitLogFieldKey = "rate_limit_key"

// Rate is Count requests per Duration.
type Rate = ratelimit.Rate

// RateLimitAlg selects the limiting algorithm.
type RateLimitAlg = ratelimit.Alg

// Supported algorithms.
const (
	RateLimitAlgLeakyBucket   = ratelimit.AlgLeakyBucket
	RateLimitAlgSlidingWindow = ratelimit.AlgSlidingWindow
)

// RateLimitGetKeyFunc returns the limiting key of a request, or bypass=true to serve it unlimited.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// RateLimitOpts configures RateLimitWithOpts.
// Without GetKey all requests share one global budget.
type RateLimitOpts struct {
	Alg                RateLimitAlg
	MaxBurst           int
	GetKey             RateLimitGetKeyFunc
	MaxKeys            int
	ResponseStatusCode int
	DryRun             bool
}

type rateLimiter struct {
	limiter   ratelimit.Limiter
	opts      RateLimitOpts
	errDomain string
}

// RateLimit limits requests globally using the leaky bucket algorithm.
func RateLimit(maxRate Rate, errDomain string) (func(next http.Handler) http.Handler, error) {
	return RateLimitWithOpts(maxRate, errDomain, RateLimitOpts{})
}

// RateLimitWithOpts limits the rate of requests. Rejected requests get 429 (or ResponseStatusCode)
// with a Retry-After header. In DryRun mode they are only logged.
func RateLimitWithOpts(maxRate Rate, errDomain string, opts RateLimitOpts) (func(next http.Handler) http.Handler, error) {
	if opts.Alg == "" {
		opts.Alg = RateLimitAlgLeakyBucket
	}
	if opts.ResponseStatusCode == 0 {
		opts.ResponseStatusCode = http.StatusTooManyRequests
	}
	maxKeys := 0
	if opts.GetKey != nil {
		if maxKeys = opts.MaxKeys; maxKeys == 0 {
			maxKeys = DefaultRateLimitMaxKeys
		}
	}
	limiter, err := ratelimit.NewLimiter(opts.Alg, maxRate, opts.MaxBurst, maxKeys)
	if err != nil {
		return nil, fmt.Errorf("new rate limiter: %w", err)
	}

	rl := &rateLimiter{limiter: limiter, opts: opts, errDomain: errDomain}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rl.serve(rw, r, next)
		})
	}, nil
}

// MustRateLimitWithOpts panics if the limiter cannot be created.
func MustRateLimitWithOpts(maxRate Rate, errDomain string, opts RateLimitOpts) func(next http.Handler) http.Handler {
	mw, err := RateLimitWithOpts(maxRate, errDomain, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

// GetRateLimitKeyByRemoteIP keys requests by client IP, preferring the proxy-reported origin.
func GetRateLimitKeyByRemoteIP(r *http.Request) (key string, bypass bool, err error) {
	if origin := getOriginAddr(r); origin != "" {
		return origin, false, nil
	}
	if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
		return host, false, nil
	}
	return r.RemoteAddr, false, nil
}

func (rl *rateLimiter) serve(rw http.ResponseWriter, r *http.Request, next http.Handler) {
	logger := GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	var key string
	if rl.opts.GetKey != nil {
		k, bypass, err := rl.opts.GetKey(r)
		if err != nil {
			logger.Error("get rate limit key", log.Error(err))
			restapi.RespondInternalError(rw, rl.errDomain, logger)
			return
		}
		if bypass {
			next.ServeHTTP(rw, r)
			return
		}
		key = k
	}
	logger = logger.With(log.String(RateLimitLogFieldKey, key))

	allow, retryAfter, err := rl.limiter.Allow(r.Context(), key)
	switch {
	case err != nil:
		logger.Error("rate limit check", log.Error(err))
		restapi.RespondInternalError(rw, rl.errDomain, logger)
	case allow:
		next.ServeHTTP(rw, r)
	case rl.opts.DryRun:
		logger.Warn("too many requests, serving will be continued because of dry run mode")
		next.ServeHTTP(rw, r)
	default:
		rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		restapi.RespondError(rw, rl.opts.ResponseStatusCode,
			restapi.NewError(rl.errDomain, restapi.ErrCodeTooManyRequests, restapi.ErrMessageTooManyRequests), logger)
	}
}
