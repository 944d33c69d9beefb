/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

const (
	headerRequestID         = "X-Request-ID"
	headerInternalRequestID = "X-Int-Request-ID"
)

// RequestIDOpts overrides id generation, mostly for tests.
type RequestIDOpts struct {
	GenerateID         func() string
	GenerateInternalID func() string
}

// RequestID propagates X-Request-ID (generating it when absent) and assigns a fresh X-Int-Request-ID.
// Both ids are echoed in response headers, so a console user can find a call in the server log.
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{})
}

// RequestIDWithOpts is RequestID with custom generators.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	genID := orXID(opts.GenerateID)
	genInternalID := orXID(opts.GenerateInternalID)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(headerRequestID)
			if reqID == "" {
				reqID = genID()
			}
			intReqID := genInternalID()

			h := rw.Header()
			h.Set(headerRequestID, reqID)
			h.Set(headerInternalRequestID, intReqID)

			ctx := NewContextWithInternalRequestID(NewContextWithRequestID(r.Context(), reqID), intReqID)
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

func orXID(gen func() string) func() string {
	if gen != nil {
		return gen
	}
	return func() string { return xid.New().String() }
}
