/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "net/http"

// UserAgentUpdateStrategy represents a strategy for updating User-Agent HTTP header.
type UserAgentUpdateStrategy int

// User-Agent update strategies.
const (
	UserAgentUpdateStrategySetIfEmpty UserAgentUpdateStrategy = iota
	UserAgentUpdateStrategyAppend
	UserAgentUpdateStrategyPrepend
)

// UserAgentRoundTripper sets User-Agent HTTP header in outgoing requests.
type UserAgentRoundTripper struct {
	Delegate       http.RoundTripper
	UserAgent      string
	UpdateStrategy UserAgentUpdateStrategy
}

// NewUserAgentRoundTripper creates a new UserAgentRoundTripper that sets User-Agent only when it's empty.
// User-submitted requests keep their own User-Agent.
func NewUserAgentRoundTripper(delegate http.RoundTripper, userAgent string) *UserAgentRoundTripper {
	return &UserAgentRoundTripper{Delegate: delegate, UserAgent: userAgent}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *UserAgentRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	current := r.Header.Get("User-Agent")
	userAgent := rt.UserAgent
	switch {
	case current == "":
	case rt.UpdateStrategy == UserAgentUpdateStrategyAppend:
		userAgent = current + " " + rt.UserAgent
	case rt.UpdateStrategy == UserAgentUpdateStrategyPrepend:
		userAgent = rt.UserAgent + " " + current
	default:
		return rt.Delegate.RoundTrip(r)
	}
	r = r.Clone(r.Context()) // Per RoundTripper contract.
	r.Header.Set("User-Agent", userAgent)
	return rt.Delegate.RoundTrip(r)
}
