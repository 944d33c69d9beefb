/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/acronis/go-apiconsole/log"
)

// ContentTypeAppJSON is the Content-Type of all console API responses.
const ContentTypeAppJSON = "application/json"

// ErrorResponseData is the {"error": {...}} envelope.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

// loggerOrDisabled lets helpers accept a nil logger.
func loggerOrDisabled(logger log.FieldLogger) log.FieldLogger {
	if logger == nil {
		return log.NewDisabledLogger()
	}
	return logger
}

// RespondJSON writes respData as a 200 JSON response.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON writes respData as JSON with statusCode.
// A nil respData produces an empty body, e.g. for 204.
// HTML characters are not escaped: response bodies of relayed calls often carry URLs.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}

	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(respData); err != nil {
		loggerOrDisabled(logger).Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}
	rw.WriteHeader(statusCode)
	body := strings.TrimSuffix(sb.String(), "\n")
	if _, err := rw.Write([]byte(body)); err != nil {
		loggerOrDisabled(logger).Error("error while writing response body", log.Error(err))
	}
}

// RespondError writes the error envelope. Server-side failures (5xx) are logged as errors,
// client mistakes as warnings.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	logger = loggerOrDisabled(logger)
	fields := []log.Field{log.String("error_code", err.Code), log.String("error_message", err.Message)}
	if len(err.Context) > 0 {
		fields = append(fields, log.Strings("error_context", err.contextLines()))
	}
	if httpStatusCode >= http.StatusInternalServerError {
		logger.Error("error in response", fields...)
	} else {
		logger.Warn("error in response", fields...)
	}

	collectErrorMetrics(err)
	RespondCodeAndJSON(rw, httpStatusCode, ErrorResponseData{Err: err}, logger)
}

func (e *Error) contextLines() []string {
	lines := make([]string, 0, len(e.Context))
	for k, v := range e.Context {
		lines = append(lines, fmt.Sprintf("%s: %v", k, v))
	}
	sort.Strings(lines)
	return lines
}

// RespondInternalError writes a 500 with the generic internal error.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}

// RespondMalformedRequestError writes the status carried by reqErr with a code derived from it.
func RespondMalformedRequestError(rw http.ResponseWriter, domain string, reqErr *MalformedRequestError, logger log.FieldLogger) {
	RespondError(rw, reqErr.HTTPStatusCode,
		NewError(domain, httpCode2ErrorCode(reqErr.HTTPStatusCode), reqErr.Message), logger)
}

// RespondMalformedRequestOrInternalError is for errors of DecodeRequestJSON:
// malformed input becomes a 4xx, anything else a 500.
func RespondMalformedRequestOrInternalError(rw http.ResponseWriter, domain string, err error, logger log.FieldLogger) {
	if reqErr := (*MalformedRequestError)(nil); errors.As(err, &reqErr) {
		RespondMalformedRequestError(rw, domain, reqErr, logger)
		return
	}
	loggerOrDisabled(logger).Error("request handling failed", log.Error(err))
	RespondInternalError(rw, domain, logger)
}
