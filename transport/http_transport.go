/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package transport provides the HTTP implementation of the queue.Transport.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/go-apiconsole/httpclient"
	"github.com/acronis/go-apiconsole/queue"
)

// RequestType is the request type of the outgoing calls in client logs and metrics.
const RequestType = "console"

// DefaultMaxResponseBodySize is used when Opts.MaxResponseBodySize is zero.
const DefaultMaxResponseBodySize = queue.DefaultMaxResponseBodySize

const contentTypeAppJSON = "application/json"

// Opts represents options for HTTPTransport.
type Opts struct {
	MaxResponseBodySize uint64
}

// HTTPTransport performs calls over HTTP.
// Non-2xx responses are returned as *queue.TransportError with the decoded response payload.
type HTTPTransport struct {
	client              *http.Client
	maxResponseBodySize uint64
}

var _ queue.Transport = (*HTTPTransport)(nil)

// New creates a new HTTPTransport. The client is usually built by httpclient.NewWithOpts.
func New(client *http.Client, opts Opts) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.MaxResponseBodySize == 0 {
		opts.MaxResponseBodySize = DefaultMaxResponseBodySize
	}
	return &HTTPTransport{client: client, maxResponseBodySize: opts.MaxResponseBodySize}
}

// Call implements queue.Transport.
func (t *HTTPTransport) Call(ctx context.Context, call *queue.Call) (*queue.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &queue.TransportError{Message: "request aborted", Err: err}
	}

	var body io.Reader
	if call.Payload != nil {
		body = bytes.NewReader(call.Payload)
	}
	ctx = httpclient.NewContextWithRequestType(ctx, RequestType)
	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, body)
	if err != nil {
		return nil, &queue.TransportError{Message: "create request", Err: err}
	}
	for name, values := range call.Headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if call.Payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentTypeAppJSON)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &queue.TransportError{Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := t.readResponseData(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &queue.TransportError{
			Message:         fmt.Sprintf("request failed with status code %d", resp.StatusCode),
			StatusCode:      resp.StatusCode,
			ResponsePayload: data,
		}
	}
	return &queue.Result{StatusCode: resp.StatusCode, Headers: resp.Header.Clone(), Data: data}, nil
}

// readResponseData reads at most maxResponseBodySize bytes and decodes them as JSON
// falling back to the raw string.
func (t *HTTPTransport) readResponseData(resp *http.Response) (interface{}, error) {
	limit := int64(t.maxResponseBodySize) //nolint:gosec // configured size is reasonable
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &queue.TransportError{Message: "read response body", StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(raw)) > limit {
		return nil, &queue.TransportError{
			Message:    fmt.Sprintf("response body is larger than %s", bytefmt.ByteSize(t.maxResponseBodySize)),
			StatusCode: resp.StatusCode,
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var data interface{}
	if err = json.Unmarshal(raw, &data); err != nil {
		return string(raw), nil
	}
	return data, nil
}
