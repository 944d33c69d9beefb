/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/acronis/go-apiconsole/log"
)

// makeRequestBodyRewindable returns a function that restores the request body before the next attempt.
// req.GetBody is preferred, then seeking, and the body is buffered in memory as the last resort.
func makeRequestBodyRewindable(req *http.Request) (func(*http.Request) error, error) {
	if req.GetBody != nil {
		return func(r *http.Request) error {
			body, err := r.GetBody()
			if err != nil {
				return fmt.Errorf("get body for retry: %w", err)
			}
			r.Body = body
			return nil
		}, nil
	}

	if seeker, ok := req.Body.(io.ReadSeeker); ok {
		offset, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("seek request body before doing first request: %w", err)
		}
		req.Body = io.NopCloser(seeker)
		return func(r *http.Request) error {
			if _, seekErr := seeker.Seek(offset, io.SeekStart); seekErr != nil {
				return fmt.Errorf("seek request body to offset %d: %w", offset, seekErr)
			}
			return nil
		}, nil
	}

	buffered, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body before doing first request: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(buffered))
	return func(r *http.Request) error {
		r.Body = io.NopCloser(bytes.NewReader(buffered))
		return nil
	}, nil
}

// drainResponseBody discards the rest of the body so the connection can be reused.
func drainResponseBody(resp *http.Response, logger log.FieldLogger) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close previous response body between retry attempts", log.Error(err))
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Error("failed to discard previous response body between retry attempts", log.Error(err))
	}
}
