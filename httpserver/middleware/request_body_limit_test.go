/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/restapi"
	"github.com/acronis/go-apiconsole/testutil"
)

func TestRequestBodyLimitHandler_ServeHTTP(t *testing.T) {
	const errDomain = "Console"
	const maxSize = 10

	decodeHandler := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var dst map[string]interface{}
		if err := restapi.DecodeRequestJSON(r, &dst); err != nil {
			restapi.RespondMalformedRequestOrInternalError(rw, errDomain, err, nil)
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	})

	t.Run("body fits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"a":1}`)))
		resp := httptest.NewRecorder()
		RequestBodyLimit(maxSize, errDomain)(decodeHandler).ServeHTTP(resp, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("content length exceeds limit", func(t *testing.T) {
		next := &mockNextHandler{}
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"a":"0123456789"}`)))
		resp := httptest.NewRecorder()
		RequestBodyLimit(maxSize, errDomain)(next).ServeHTTP(resp, req)
		require.Equal(t, 0, next.called)
		testutil.RequireErrorInRecorder(t, resp, http.StatusRequestEntityTooLarge, errDomain, "requestEntityTooLarge")
	})

	t.Run("actual body exceeds limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"a":"0123456789"}`)))
		req.ContentLength = -1
		resp := httptest.NewRecorder()
		RequestBodyLimit(maxSize, errDomain)(decodeHandler).ServeHTTP(resp, req)
		testutil.RequireErrorInRecorder(t, resp, http.StatusRequestEntityTooLarge, errDomain, "requestEntityTooLarge")
	})
}
