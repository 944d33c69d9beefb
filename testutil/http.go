/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// reply is the part of a served response the assertions look at.
type reply struct {
	code   int
	header http.Header
	body   io.Reader
}

func fromRecorder(rec *httptest.ResponseRecorder) reply {
	return reply{rec.Code, rec.Header(), rec.Body}
}

func fromResponse(resp *http.Response) reply {
	return reply{resp.StatusCode, resp.Header, resp.Body}
}

// readJSON requires a JSON content type and returns the whole body.
func (r reply) readJSON(t require.TestingT) []byte {
	markHelper(t)
	require.Equal(t, contentTypeAppJSON, r.header.Get("Content-Type"))
	data, err := io.ReadAll(r.body)
	require.NoError(t, err)
	return data
}

func (r reply) requireError(t require.TestingT, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	require.Equal(t, wantHTTPCode, r.code)
	var envelope struct {
		Error struct {
			Domain string `json:"domain"`
			Code   string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(r.readJSON(t), &envelope))
	require.Equal(t, wantErrDomain, envelope.Error.Domain)
	require.Equal(t, wantErrCode, envelope.Error.Code)
}

// RequireErrorInRecorder asserts the recorded response is an API error
// {"error": {"domain": ..., "code": ...}} with the given status.
func RequireErrorInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	fromRecorder(resp).requireError(t, wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireErrorInResponse is RequireErrorInRecorder for a client-side response.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	fromResponse(resp).requireError(t, wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireJSONInRecorder decodes the recorded JSON body into dest and compares dest with want.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want, dest interface{}) {
	markHelper(t)
	require.NoError(t, json.Unmarshal(fromRecorder(resp).readJSON(t), dest))
	require.Equal(t, want, dest)
}

// RequireStringJSONInResponse compares the JSON body with want byte by byte.
func RequireStringJSONInResponse(t require.TestingT, resp *http.Response, want string) {
	markHelper(t)
	require.Equal(t, want, string(fromResponse(resp).readJSON(t)))
}
