/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// OriginalBaseURLHeader carries "scheme://host" of the real target when a request goes through the relay.
const OriginalBaseURLHeader = "X-Original-Base-Url"

// RelayRoundTripper sends requests through the forwarding relay:
// "https://api.example.com/v1/users?x=1" becomes "<relay base><prefix>/v1/users?x=1"
// with the original "https://api.example.com" in the X-Original-Base-Url header.
type RelayRoundTripper struct {
	Delegate   http.RoundTripper
	BaseURL    *url.URL
	PathPrefix string
}

// NewRelayRoundTripper creates a new RelayRoundTripper.
func NewRelayRoundTripper(delegate http.RoundTripper, baseURL, pathPrefix string) (*RelayRoundTripper, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("relay base URL %q must be absolute", baseURL)
	}
	return &RelayRoundTripper{Delegate: delegate, BaseURL: u, PathPrefix: strings.TrimRight(pathPrefix, "/")}, nil
}

// RoundTrip rewrites the request URL to the relay and executes it.
func (rt *RelayRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	originalBase := r.URL.Scheme + "://" + r.URL.Host

	target := *rt.BaseURL
	target.Path = strings.TrimRight(rt.BaseURL.Path, "/") + rt.PathPrefix + r.URL.Path
	target.RawPath = ""
	target.RawQuery = r.URL.RawQuery
	target.Fragment = ""

	r = r.Clone(r.Context()) // Per RoundTripper contract.
	r.URL = &target
	r.Host = target.Host
	r.Header.Set(OriginalBaseURLHeader, originalBase)
	return rt.Delegate.RoundTrip(r)
}
