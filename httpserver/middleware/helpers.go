/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware contains HTTP middlewares for the console servers:
// request id, logging, panic recovery, Prometheus metrics, request body limit and rate limiting.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RoutePatternGetterFunc returns route pattern of the request, it's used as a low-cardinality metrics label.
type RoutePatternGetterFunc func(r *http.Request) string

// GetChiRoutePattern returns the chi route pattern ("/requests/{id}") of the request.
func GetChiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// WrapResponseWriter is a proxy around http.ResponseWriter that records status and number of bytes written.
type WrapResponseWriter = chimw.WrapResponseWriter

// WrapResponseWriterIfNeeded wraps an http.ResponseWriter if it is not already wrapped.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

func statusOrOK(wrw WrapResponseWriter) int {
	if status := wrw.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
