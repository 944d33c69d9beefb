/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/log/logtest"
)

func TestHTTPCode2ErrorCode(t *testing.T) {
	require.Equal(t, "internalError", httpCode2ErrorCode(http.StatusInternalServerError))
	require.Equal(t, "requestEntityTooLarge", httpCode2ErrorCode(http.StatusRequestEntityTooLarge))
	require.Equal(t, "unsupportedMediaType", httpCode2ErrorCode(http.StatusUnsupportedMediaType))
	require.Equal(t, "badRequest", httpCode2ErrorCode(http.StatusBadRequest))
}

func TestRespondCodeAndJSON(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondCodeAndJSON(resp, http.StatusCreated, map[string]string{"url": "http://a.b/?x=<y>"}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, ContentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.Equal(t, `{"url":"http://a.b/?x=<y>"}`, resp.Body.String())

	resp = httptest.NewRecorder()
	RespondCodeAndJSON(resp, http.StatusNoContent, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Empty(t, resp.Body.String())

	resp = httptest.NewRecorder()
	logger := logtest.NewRecorder()
	RespondJSON(resp, func() {}, logger)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	_, found := logger.FindEntry("error while marshaling json for response body")
	require.True(t, found)
}

func TestRespondError(t *testing.T) {
	MustInitAndRegisterMetrics("test")
	defer UnregisterMetrics()

	logger := logtest.NewRecorder()
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusNotFound,
		NewError("Console", ErrCodeNotFound, "Request record is not found.").AddContext("id", "42"), logger)

	require.Equal(t, http.StatusNotFound, resp.Code)
	require.JSONEq(t,
		`{"error":{"domain":"Console","code":"notFound","message":"Request record is not found.","context":{"id":"42"}}}`,
		resp.Body.String())

	entry, found := logger.FindEntry("error in response")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	require.Equal(t, 1.0, testutil.ToFloat64(metricsResponseErrors.WithLabelValues("Console", ErrCodeNotFound)))

	resp = httptest.NewRecorder()
	RespondMalformedRequestOrInternalError(resp, "Console", errors.New("boom"), logger)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.JSONEq(t, `{"error":{"domain":"Console","code":"internalError","message":"Internal error."}}`, resp.Body.String())
}

func TestDecodeRequestJSON(t *testing.T) {
	type payload struct {
		URL    string `json:"url"`
		Method string `json:"method"`
	}
	tests := []struct {
		name        string
		contentType string
		body        string
		maxBodySize uint64
		strict      bool
		wantStatus  int
		wantMessage string
	}{
		{name: "ok", contentType: "application/json; charset=utf-8", body: `{"url":"http://a.b","method":"GET"}`},
		{name: "empty", body: ``, wantStatus: http.StatusBadRequest, wantMessage: "Request body must not be empty."},
		{name: "unexpected EOF", body: `{"url":`, wantStatus: http.StatusBadRequest,
			wantMessage: "Request body contains badly-formed JSON."},
		{name: "syntax", body: `{"url":}`, wantStatus: http.StatusBadRequest,
			wantMessage: "Request body contains badly-formed JSON (at position"},
		{name: "type", body: `{"url":1}`, wantStatus: http.StatusBadRequest,
			wantMessage: `Request body contains an invalid value for the "url" field`},
		{name: "many objects", body: `{} {}`, wantStatus: http.StatusBadRequest,
			wantMessage: "Request body must only contain a single JSON object."},
		{name: "content type", contentType: "text/plain", body: `{}`, wantStatus: http.StatusUnsupportedMediaType,
			wantMessage: `Content-Type "text/plain" is not supported.`},
		{name: "unknown field", body: `{"uri":"x"}`, strict: true, wantStatus: http.StatusBadRequest,
			wantMessage: `Request body contains unknown field "uri".`},
		{name: "too large", body: `{"url":"` + strings.Repeat("a", 100) + `"}`, maxBodySize: 10,
			wantStatus: http.StatusRequestEntityTooLarge, wantMessage: "Request body must not be larger than 10B."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.maxBodySize != 0 {
				SetRequestMaxBodySize(httptest.NewRecorder(), req, tt.maxBodySize)
			}
			var dst payload
			err := DecodeRequestJSONStrict(req, &dst, tt.strict)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				require.Equal(t, payload{URL: "http://a.b", Method: "GET"}, dst)
				return
			}
			var reqErr *MalformedRequestError
			require.ErrorAs(t, err, &reqErr)
			require.Equal(t, tt.wantStatus, reqErr.HTTPStatusCode)
			require.True(t, strings.HasPrefix(reqErr.Message, tt.wantMessage), "unexpected message %q", reqErr.Message)
		})
	}
}
