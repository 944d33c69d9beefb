/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"time"

	"github.com/acronis/go-apiconsole/log"
)

// ctxKey names a request-scoped value set by the middlewares of this package.
type ctxKey string

const (
	ctxKeyRequestID         ctxKey = "request_id"
	ctxKeyInternalRequestID ctxKey = "int_request_id"
	ctxKeyLogger            ctxKey = "logger"
	ctxKeyLoggingParams     ctxKey = "logging_params"
	ctxKeyRequestStartTime  ctxKey = "request_start_time"
)

// fromContext returns the zero value of T when the key is absent.
func fromContext[T any](ctx context.Context, key ctxKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// NewContextWithRequestID stores the X-Request-ID value.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext returns the X-Request-ID value or "".
func GetRequestIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, ctxKeyRequestID)
}

// NewContextWithInternalRequestID stores the id generated for this hop.
func NewContextWithInternalRequestID(ctx context.Context, internalRequestID string) context.Context {
	return context.WithValue(ctx, ctxKeyInternalRequestID, internalRequestID)
}

// GetInternalRequestIDFromContext returns the id generated for this hop or "".
func GetInternalRequestIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, ctxKeyInternalRequestID)
}

// NewContextWithLogger stores the request-scoped logger.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext returns the request-scoped logger or nil.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	return fromContext[log.FieldLogger](ctx, ctxKeyLogger)
}

// NewContextWithLoggingParams stores params that handlers fill for the access log line.
func NewContextWithLoggingParams(ctx context.Context, loggingParams *LoggingParams) context.Context {
	return context.WithValue(ctx, ctxKeyLoggingParams, loggingParams)
}

// GetLoggingParamsFromContext returns the access log params or nil.
func GetLoggingParamsFromContext(ctx context.Context) *LoggingParams {
	return fromContext[*LoggingParams](ctx, ctxKeyLoggingParams)
}

// NewContextWithRequestStartTime stores when serving of the request began.
func NewContextWithRequestStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyRequestStartTime, startTime)
}

// GetRequestStartTimeFromContext returns the start time or the zero time.
func GetRequestStartTimeFromContext(ctx context.Context) time.Time {
	return fromContext[time.Time](ctx, ctxKeyRequestStartTime)
}
