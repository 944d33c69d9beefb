/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/restapi"
	"github.com/acronis/go-apiconsole/testutil"
)

func TestRateLimitHandler_ServeHTTP(t *testing.T) {
	const errDomain = "Console"

	sendReq := func(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remoteAddr
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		return resp
	}

	for _, alg := range []RateLimitAlg{RateLimitAlgLeakyBucket, RateLimitAlgSlidingWindow} {
		alg := alg
		t.Run(string(alg)+", global key", func(t *testing.T) {
			next := &mockNextHandler{}
			mw, err := RateLimitWithOpts(Rate{Count: 1, Duration: time.Minute}, errDomain, RateLimitOpts{Alg: alg})
			require.NoError(t, err)
			h := mw(next)

			require.Equal(t, http.StatusOK, sendReq(h, "10.0.0.1:1000").Code)
			resp := sendReq(h, "10.0.0.2:1000")
			testutil.RequireErrorInRecorder(t, resp, http.StatusTooManyRequests, errDomain, restapi.ErrCodeTooManyRequests)
			retryAfter, err := strconv.Atoi(resp.Header().Get("Retry-After"))
			require.NoError(t, err)
			require.Greater(t, retryAfter, 0)
			require.Equal(t, 1, next.called)
		})

		t.Run(string(alg)+", key by remote ip", func(t *testing.T) {
			next := &mockNextHandler{}
			h := MustRateLimitWithOpts(Rate{Count: 1, Duration: time.Minute}, errDomain,
				RateLimitOpts{Alg: alg, GetKey: GetRateLimitKeyByRemoteIP})(next)

			require.Equal(t, http.StatusOK, sendReq(h, "10.0.0.1:1000").Code)
			require.Equal(t, http.StatusOK, sendReq(h, "10.0.0.2:1000").Code)
			require.Equal(t, http.StatusTooManyRequests, sendReq(h, "10.0.0.1:2000").Code)
			require.Equal(t, 2, next.called)
		})
	}

	t.Run("dry run", func(t *testing.T) {
		next := &mockNextHandler{}
		h := MustRateLimitWithOpts(Rate{Count: 1, Duration: time.Minute}, errDomain, RateLimitOpts{DryRun: true})(next)
		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, sendReq(h, "10.0.0.1:1000").Code)
		}
		require.Equal(t, 3, next.called)
	})

	t.Run("bypass and key error", func(t *testing.T) {
		next := &mockNextHandler{}
		getKey := func(r *http.Request) (string, bool, error) {
			switch r.RemoteAddr {
			case "bypass":
				return "", true, nil
			case "broken":
				return "", false, errors.New("no key")
			}
			return r.RemoteAddr, false, nil
		}
		h := MustRateLimitWithOpts(Rate{Count: 1, Duration: time.Minute}, errDomain, RateLimitOpts{GetKey: getKey})(next)

		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, sendReq(h, "bypass").Code)
		}
		testutil.RequireErrorInRecorder(t, sendReq(h, "broken"), http.StatusInternalServerError, errDomain, restapi.ErrCodeInternal)
		require.Equal(t, 3, next.called)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := RateLimit(Rate{Count: 0, Duration: time.Second}, errDomain)
		require.Error(t, err)
		_, err = RateLimitWithOpts(Rate{Count: 1, Duration: time.Second}, errDomain, RateLimitOpts{Alg: "unknown"})
		require.Error(t, err)
	})
}
