/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LimiterTestSuite struct {
	suite.Suite
	alg Alg
}

func TestLeakyBucketLimiter(t *testing.T) {
	suite.Run(t, &LimiterTestSuite{alg: AlgLeakyBucket})
}

func TestSlidingWindowLimiter(t *testing.T) {
	suite.Run(t, &LimiterTestSuite{alg: AlgSlidingWindow})
}

func (ts *LimiterTestSuite) newLimiter(rate Rate, maxKeys int) Limiter {
	maxBurst := 0
	if ts.alg == AlgLeakyBucket {
		maxBurst = rate.Count - 1
	}
	limiter, err := NewLimiter(ts.alg, rate, maxBurst, maxKeys)
	ts.Require().NoError(err)
	return limiter
}

func (ts *LimiterTestSuite) TestAllowSequential() {
	limiter := ts.newLimiter(Rate{Count: 2, Duration: time.Minute}, 100)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allow, _, err := limiter.Allow(ctx, "client-1")
		ts.Require().NoError(err)
		ts.Require().True(allow, "request #%d", i+1)
	}

	allow, retryAfter, err := limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.Require().False(allow)
	ts.Require().Greater(retryAfter, time.Duration(0))
	ts.Require().LessOrEqual(retryAfter, time.Minute)
}

func (ts *LimiterTestSuite) TestKeysAreIndependent() {
	limiter := ts.newLimiter(Rate{Count: 1, Duration: time.Minute}, 100)
	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.Require().True(allow)

	allow, _, err = limiter.Allow(ctx, "client-2")
	ts.Require().NoError(err)
	ts.Require().True(allow)

	allow, _, err = limiter.Allow(ctx, "client-1")
	ts.Require().NoError(err)
	ts.Require().False(allow)
}

func (ts *LimiterTestSuite) TestGlobalKey() {
	limiter := ts.newLimiter(Rate{Count: 1, Duration: time.Minute}, 0)
	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "")
	ts.Require().NoError(err)
	ts.Require().True(allow)

	allow, _, err = limiter.Allow(ctx, "")
	ts.Require().NoError(err)
	ts.Require().False(allow)
}

func TestNewLimiter_Errors(t *testing.T) {
	if _, err := NewLimiter("token_bucket", Rate{Count: 1, Duration: time.Second}, 0, 0); err == nil {
		t.Fatal("expected error for unknown alg")
	}
	if _, err := NewLimiter(AlgLeakyBucket, Rate{Count: 0, Duration: time.Second}, 0, 0); err == nil {
		t.Fatal("expected error for zero rate")
	}
}
