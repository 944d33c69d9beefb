/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "context"

type ctxKey int

const (
	ctxKeyRequestType ctxKey = iota
	ctxKeyIdempotentHint
)

// DefaultRequestType is used in logs and metrics when the request type is not specified.
const DefaultRequestType = "default"

// NewContextWithRequestType returns a derived context carrying the request type
// (e.g. "console" for user-submitted requests) used in logs and metrics labels.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestType).(string); ok {
		return s
	}
	return ""
}

// NewContextWithIdempotentHint returns a derived context that marks the request as idempotent,
// so RetryableRoundTripper may retry it even if its method is not safe.
func NewContextWithIdempotentHint(ctx context.Context, isIdempotent bool) context.Context {
	return context.WithValue(ctx, ctxKeyIdempotentHint, isIdempotent)
}

// GetIdempotentHintFromContext extracts the idempotent hint from the context.
func GetIdempotentHintFromContext(ctx context.Context) bool {
	b, ok := ctx.Value(ctxKeyIdempotentHint).(bool)
	return ok && b
}

func requestTypeOrDefault(ctx context.Context, fallback string) string {
	if reqType := GetRequestTypeFromContext(ctx); reqType != "" {
		return reqType
	}
	if fallback != "" {
		return fallback
	}
	return DefaultRequestType
}
