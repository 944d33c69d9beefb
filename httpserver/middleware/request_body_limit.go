/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/acronis/go-apiconsole/restapi"
)

// RequestBodyLimit rejects requests whose body exceeds maxSizeBytes.
// A declared Content-Length is checked up front and the body reader is capped for chunked uploads.
func RequestBodyLimit(maxSizeBytes uint64, errDomain string) func(next http.Handler) http.Handler {
	limit := int64(maxSizeBytes) //nolint:gosec // configured size fits int64
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.ContentLength <= limit {
				restapi.SetRequestMaxBodySize(rw, r, maxSizeBytes)
				next.ServeHTTP(rw, r)
				return
			}
			restapi.RespondMalformedRequestError(rw, errDomain,
				restapi.NewTooLargeMalformedRequestError(maxSizeBytes), GetLoggerFromContext(r.Context()))
		})
	}
}
