/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"

	"github.com/acronis/go-apiconsole/httpserver/middleware"
)

// RequestIDHeader is the header carrying the request id.
const RequestIDHeader = "X-Request-ID"

// RequestIDRoundTripperOpts represents an options for RequestIDRoundTripper.
type RequestIDRoundTripperOpts struct {
	// RequestIDProvider returns the request id for the context.
	// middleware.GetRequestIDFromContext is used by default.
	RequestIDProvider func(ctx context.Context) string
}

// RequestIDRoundTripper propagates the request id into the X-Request-ID header of outgoing requests.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper
	Opts     RequestIDRoundTripperOpts
}

// NewRequestIDRoundTripper creates a new RequestIDRoundTripper.
func NewRequestIDRoundTripper(delegate http.RoundTripper) *RequestIDRoundTripper {
	return NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{})
}

// NewRequestIDRoundTripperWithOpts creates a new RequestIDRoundTripper with options.
func NewRequestIDRoundTripperWithOpts(delegate http.RoundTripper, opts RequestIDRoundTripperOpts) *RequestIDRoundTripper {
	if opts.RequestIDProvider == nil {
		opts.RequestIDProvider = middleware.GetRequestIDFromContext
	}
	return &RequestIDRoundTripper{Delegate: delegate, Opts: opts}
}

// RoundTrip sets X-Request-ID unless the request already has it.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(RequestIDHeader) != "" {
		return rt.Delegate.RoundTrip(r)
	}
	requestID := rt.Opts.RequestIDProvider(r.Context())
	if requestID == "" {
		return rt.Delegate.RoundTrip(r)
	}
	r = r.Clone(r.Context()) // Per RoundTripper contract.
	r.Header.Set(RequestIDHeader, requestID)
	return rt.Delegate.RoundTrip(r)
}
