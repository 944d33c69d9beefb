/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/log/logtest"
)

type roundTripperFunc func(r *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func statusRoundTripper(status int, seen *[]*http.Request) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if seen != nil {
			*seen = append(*seen, r)
		}
		return &http.Response{StatusCode: status, Header: http.Header{}, Body: http.NoBody, Request: r}, nil
	})
}

func TestUserAgentRoundTripper(t *testing.T) {
	tests := []struct {
		name      string
		strategy  UserAgentUpdateStrategy
		current   string
		wantAgent string
	}{
		{name: "set if empty", strategy: UserAgentUpdateStrategySetIfEmpty, wantAgent: "console"},
		{name: "keep existing", strategy: UserAgentUpdateStrategySetIfEmpty, current: "curl/8.0", wantAgent: "curl/8.0"},
		{name: "append", strategy: UserAgentUpdateStrategyAppend, current: "curl/8.0", wantAgent: "curl/8.0 console"},
		{name: "prepend", strategy: UserAgentUpdateStrategyPrepend, current: "curl/8.0", wantAgent: "console curl/8.0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var seen []*http.Request
			rt := NewUserAgentRoundTripper(statusRoundTripper(http.StatusOK, &seen), "console")
			rt.UpdateStrategy = tt.strategy
			req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
			require.NoError(t, err)
			if tt.current != "" {
				req.Header.Set("User-Agent", tt.current)
			}
			_, err = rt.RoundTrip(req)
			require.NoError(t, err)
			require.Len(t, seen, 1)
			require.Equal(t, tt.wantAgent, seen[0].Header.Get("User-Agent"))
			require.Equal(t, tt.current, req.Header.Get("User-Agent"), "original request must not be modified")
		})
	}
}

func TestRequestIDRoundTripper(t *testing.T) {
	var seen []*http.Request
	rt := NewRequestIDRoundTripperWithOpts(statusRoundTripper(http.StatusOK, &seen), RequestIDRoundTripperOpts{
		RequestIDProvider: func(ctx context.Context) string { return "generated-id" },
	})

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	req, err = http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "own-id")
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	require.Equal(t, "generated-id", seen[0].Header.Get(RequestIDHeader))
	require.Equal(t, "own-id", seen[1].Header.Get(RequestIDHeader))
}

func TestRelayRoundTripper(t *testing.T) {
	var seen []*http.Request
	rt, err := NewRelayRoundTripper(statusRoundTripper(http.StatusOK, &seen), "http://localhost:3000/base/", "/api/")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, "https://api.example.com:8443/v1/users?x=1#frag", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	require.Equal(t, "http://localhost:3000/base/api/v1/users?x=1", seen[0].URL.String())
	require.Equal(t, "localhost:3000", seen[0].Host)
	require.Equal(t, "https://api.example.com:8443", seen[0].Header.Get(OriginalBaseURLHeader))
	require.Equal(t, "api.example.com:8443", req.URL.Host, "original request must not be modified")

	_, err = NewRelayRoundTripper(http.DefaultTransport, "localhost:3000", "/api")
	require.Error(t, err)
}

func TestLoggingRoundTripper(t *testing.T) {
	tests := []struct {
		name      string
		mode      LoggingMode
		status    int
		err       error
		wantEntry string
		wantLevel log.Level
	}{
		{name: "all, success", mode: LoggingModeAll, status: http.StatusOK, wantEntry: "client http request done", wantLevel: log.LevelInfo},
		{name: "failed, success", mode: LoggingModeFailed, status: http.StatusOK},
		{name: "failed, 5xx", mode: LoggingModeFailed, status: http.StatusBadGateway, wantEntry: "client http request done", wantLevel: log.LevelInfo},
		{name: "all, error", mode: LoggingModeAll, err: errors.New("connection refused"), wantEntry: "client http request failed", wantLevel: log.LevelError},
		{name: "none", mode: LoggingModeNone, status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			logger := logtest.NewRecorder()
			delegate := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &http.Response{StatusCode: tt.status, Body: http.NoBody}, nil
			})
			rt := NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{Logger: logger, Mode: tt.mode})
			req, err := http.NewRequestWithContext(
				NewContextWithRequestType(context.Background(), "console"), http.MethodGet, "http://example.com/x", nil)
			require.NoError(t, err)
			_, _ = rt.RoundTrip(req)

			if tt.wantEntry == "" {
				require.Empty(t, logger.Entries())
				return
			}
			entry, found := logger.FindEntry(tt.wantEntry)
			require.True(t, found)
			require.Equal(t, tt.wantLevel, entry.Level)
			reqType, found := entry.FindField("request_type")
			require.True(t, found)
			require.Equal(t, "console", string(reqType.Bytes))
		})
	}
}

func TestLoggingRoundTripper_SlowRequestThreshold(t *testing.T) {
	logger := logtest.NewRecorder()
	rt := NewLoggingRoundTripperWithOpts(statusRoundTripper(http.StatusOK, nil), LoggingRoundTripperOpts{
		Logger:               logger,
		SlowRequestThreshold: time.Hour,
	})
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	require.Empty(t, logger.Entries())
}

type recordingMetricsCollector struct {
	labels [][4]string
}

func (c *recordingMetricsCollector) RequestDuration(requestType, host, method, status string, _ time.Duration) {
	c.labels = append(c.labels, [4]string{requestType, host, method, status})
}

func TestMetricsRoundTripper(t *testing.T) {
	collector := &recordingMetricsCollector{}
	failing := roundTripperFunc(func(r *http.Request) (*http.Response, error) { return nil, errors.New("refused") })

	okRT := NewMetricsRoundTripperWithOpts(statusRoundTripper(http.StatusCreated, nil), MetricsRoundTripperOpts{Collector: collector})
	failingRT := NewMetricsRoundTripperWithOpts(failing, MetricsRoundTripperOpts{Collector: collector, RequestType: "probe"})

	req, err := http.NewRequest(http.MethodPost, "http://example.com/x", nil)
	require.NoError(t, err)
	_, err = okRT.RoundTrip(req)
	require.NoError(t, err)
	_, err = failingRT.RoundTrip(req)
	require.Error(t, err)

	require.Equal(t, [][4]string{
		{DefaultRequestType, "example.com", http.MethodPost, "201"},
		{"probe", "example.com", http.MethodPost, "0"},
	}, collector.labels)
}

func TestRateLimitingRoundTripper(t *testing.T) {
	_, err := NewRateLimitingRoundTripper(http.DefaultTransport, 0)
	require.Error(t, err)

	rt, err := NewRateLimitingRoundTripperWithOpts(statusRoundTripper(http.StatusOK, nil), 1, RateLimitingRoundTripperOpts{
		WaitTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	var waitErr *RateLimitingWaitError
	require.ErrorAs(t, err, &waitErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rt.RoundTrip(req.WithContext(ctx))
	require.ErrorIs(t, err, context.Canceled)
}
