/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Call is an outgoing call built from the RequestDescriptor.
type Call struct {
	Method  string
	URL     string
	Headers http.Header
	// Payload is a JSON document that will be sent as a request body. It's nil when there is no body.
	Payload json.RawMessage
}

// Transport performs the outgoing call.
// It must observe ctx cancellation both when the call starts and while it's in progress.
type Transport interface {
	Call(ctx context.Context, call *Call) (*Result, error)
}

// TransportFunc is an adapter to allow the use of ordinary functions as Transport.
type TransportFunc func(ctx context.Context, call *Call) (*Result, error)

// Call implements Transport interface.
func (f TransportFunc) Call(ctx context.Context, call *Call) (*Result, error) {
	return f(ctx, call)
}

// NormalizeDescriptor validates the descriptor and returns its normalized copy
// (upper-cased method with GET by default, trimmed URL).
func NormalizeDescriptor(desc RequestDescriptor) (RequestDescriptor, error) {
	desc.URL = strings.TrimSpace(desc.URL)
	if desc.URL == "" {
		return desc, &ValidationError{Field: "url", Message: "must not be empty"}
	}
	u, err := url.Parse(desc.URL)
	if err != nil {
		return desc, &ValidationError{Field: "url", Message: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return desc, &ValidationError{Field: "url", Message: "must be an absolute http(s) URL"}
	}

	desc.Method = strings.ToUpper(strings.TrimSpace(desc.Method))
	if desc.Method == "" {
		desc.Method = http.MethodGet
	}
	if strings.ContainsAny(desc.Method, " \t\r\n") {
		return desc, &ValidationError{Field: "method", Message: "must be a single token"}
	}

	if _, err = parsePayload(desc.Body); err != nil {
		return desc, err
	}
	return desc, nil
}

// BuildCall converts the descriptor to the Call. The body is parsed as JSON.
func BuildCall(desc RequestDescriptor) (*Call, error) {
	payload, err := parsePayload(desc.Body)
	if err != nil {
		return nil, err
	}
	headers := make(http.Header, len(desc.Headers))
	for k, v := range desc.Headers {
		headers.Set(k, v)
	}
	method := desc.Method
	if method == "" {
		method = http.MethodGet
	}
	return &Call{Method: method, URL: desc.URL, Headers: headers, Payload: payload}, nil
}

func parsePayload(body string) (json.RawMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	if !json.Valid([]byte(body)) {
		return nil, &ValidationError{Field: "body", Message: "must be a valid JSON document"}
	}
	return json.RawMessage(body), nil
}
