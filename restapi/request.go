/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// MalformedRequestError is an error that occurs in case of incorrect request.
type MalformedRequestError struct {
	HTTPStatusCode int
	Message        string
}

// Error returns a string representation of MalformedRequestError.
func (e *MalformedRequestError) Error() string {
	return e.Message
}

// NewTooLargeMalformedRequestError creates a new MalformedRequestError for case when request body is too large.
func NewTooLargeMalformedRequestError(maxSizeBytes uint64) *MalformedRequestError {
	return &MalformedRequestError{
		HTTPStatusCode: http.StatusRequestEntityTooLarge,
		Message:        fmt.Sprintf("Request body must not be larger than %s.", bytefmt.ByteSize(maxSizeBytes)),
	}
}

// SetRequestMaxBodySize limits the number of bytes that may be read from the request body.
func SetRequestMaxBodySize(rw http.ResponseWriter, r *http.Request, maxSizeBytes uint64) {
	r.Body = http.MaxBytesReader(rw, r.Body, int64(maxSizeBytes)) //nolint:gosec // maxSizeBytes is a reasonable value
}

// DecodeRequestJSON reads the request body and decodes it as a single JSON value.
// The returned *MalformedRequestError describes what is wrong with the request.
func DecodeRequestJSON(r *http.Request, dst interface{}) error {
	return DecodeRequestJSONStrict(r, dst, false)
}

// DecodeRequestJSONStrict is like DecodeRequestJSON, but may reject unknown fields.
func DecodeRequestJSONStrict(r *http.Request, dst interface{}, disallowUnknownFields bool) error {
	if reqContentType := r.Header.Get("Content-Type"); reqContentType != "" {
		contentType, _, err := mime.ParseMediaType(reqContentType)
		if err != nil {
			return &MalformedRequestError{http.StatusUnsupportedMediaType,
				fmt.Sprintf("Failed to parse Content-Type header: %s.", err)}
		}
		if contentType != ContentTypeAppJSON {
			return &MalformedRequestError{http.StatusUnsupportedMediaType,
				fmt.Sprintf("Content-Type %q is not supported.", contentType)}
		}
	}

	decoder := json.NewDecoder(r.Body)
	if disallowUnknownFields {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dst); err != nil {
		return toMalformedRequestError(err)
	}
	if decoder.More() {
		return &MalformedRequestError{http.StatusBadRequest, "Request body must only contain a single JSON object."}
	}
	return nil
}

func toMalformedRequestError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return &MalformedRequestError{http.StatusBadRequest, "Request body must not be empty."}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &MalformedRequestError{http.StatusBadRequest, "Request body contains badly-formed JSON."}
	case errors.As(err, &syntaxErr):
		return &MalformedRequestError{http.StatusBadRequest,
			fmt.Sprintf("Request body contains badly-formed JSON (at position %d).", syntaxErr.Offset)}
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return &MalformedRequestError{http.StatusBadRequest, fmt.Sprintf(
				"Request body contains an invalid value for the %q field (at position %d).", typeErr.Field, typeErr.Offset)}
		}
		return &MalformedRequestError{http.StatusBadRequest, fmt.Sprintf(
			"Request body contains an invalid value of type %q for the field of type %s.", typeErr.Value, typeErr.Type)}
	case errors.As(err, &maxBytesErr):
		return NewTooLargeMalformedRequestError(uint64(maxBytesErr.Limit)) //nolint:gosec // limit is positive
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return &MalformedRequestError{http.StatusBadRequest,
			"Request body contains unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ") + "."}
	default:
		return err
	}
}
