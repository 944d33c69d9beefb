/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/acronis/go-apiconsole/httpserver/middleware"
	"github.com/acronis/go-apiconsole/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// IsValid checks if the logging mode is valid.
func (lm LoggingMode) IsValid() bool {
	switch lm {
	case LoggingModeNone, LoggingModeAll, LoggingModeFailed:
		return true
	}
	return false
}

// LoggingRoundTripperOpts represents an options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// Logger is used when LoggerProvider is nil or returns nil.
	Logger log.FieldLogger

	// LoggerProvider returns a context-specific logger.
	// middleware.GetLoggerFromContext is used by default.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestType is used when the request context doesn't carry one (see NewContextWithRequestType).
	RequestType string

	Mode                 LoggingMode
	SlowRequestThreshold time.Duration
}

// LoggingRoundTripper implements http.RoundTripper for logging outgoing requests.
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	Opts     LoggingRoundTripperOpts
}

// NewLoggingRoundTripper creates an HTTP transport that logs requests.
func NewLoggingRoundTripper(delegate http.RoundTripper, logger log.FieldLogger) *LoggingRoundTripper {
	return NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{Logger: logger})
}

// NewLoggingRoundTripperWithOpts creates an HTTP transport that logs requests with options.
func NewLoggingRoundTripperWithOpts(delegate http.RoundTripper, opts LoggingRoundTripperOpts) *LoggingRoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	return &LoggingRoundTripper{Delegate: delegate, Opts: opts}
}

// RoundTrip executes the request and logs its method, URL, status and elapsed time.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}

	ctx := r.Context()
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	logger := rt.logger(ctx)
	if logger == nil || elapsed < rt.Opts.SlowRequestThreshold {
		return resp, err
	}
	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if rt.Opts.Mode == LoggingModeFailed && !failed {
		return resp, err
	}

	reqType := requestTypeOrDefault(ctx, rt.Opts.RequestType)
	fields := []log.Field{
		log.String("method", r.Method),
		log.String("uri", r.URL.String()),
		log.String("request_type", reqType),
		log.DurationIn(elapsed, time.Millisecond),
	}
	if requestID := middleware.GetRequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, log.String("request_id", requestID))
	}
	if resp != nil {
		fields = append(fields, log.Int("status", resp.StatusCode))
	}
	if err != nil {
		logger.Error("client http request failed", append(fields, log.Error(err))...)
	} else {
		logger.Info("client http request done", fields...)
	}

	if lp := middleware.GetLoggingParamsFromContext(ctx); lp != nil {
		lp.AddTimeSlotDurationInMs("external_request_"+reqType+"_ms", elapsed)
	}
	return resp, err
}

func (rt *LoggingRoundTripper) logger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		if l := rt.Opts.LoggerProvider(ctx); l != nil {
			return l
		}
	}
	if rt.Opts.Logger != nil {
		return rt.Opts.Logger
	}
	return middleware.GetLoggerFromContext(ctx)
}
