/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package restapi contains helpers for JSON REST APIs: error envelope, responses and request decoding.
package restapi

import (
	"net/http"
	"strings"
	"unicode"
)

// Error is the body of the {"error": {...}} envelope returned by the console API.
// Domain names the component ("Console", "Relay"), Code is a stable lowerCamelCase identifier.
type Error struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error codes.
const (
	ErrCodeInternal         = "internalError"
	ErrCodeInvalidRequest   = "invalidRequest"
	ErrCodeNotFound         = "notFound"
	ErrCodeConflict         = "conflict"
	ErrCodeTooManyRequests  = "tooManyRequests"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
	ErrCodeForbidden        = "forbidden"
	ErrCodeBadGateway       = "badGateway"
)

// Error messages.
const (
	ErrMessageInternal         = "Internal error."
	ErrMessageNotFound         = "Not found."
	ErrMessageMethodNotAllowed = "Method not allowed."
	ErrMessageTooManyRequests  = "Too many requests."
)

// NewError returns an Error without context.
func NewError(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewInternalError returns the generic error for unexpected failures. Details go to the log only.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, ErrMessageInternal)
}

// AddContext sets a context entry (e.g. the invalid "field") and returns e for chaining.
func (e *Error) AddContext(field string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = map[string]interface{}{field: value}
		return e
	}
	e.Context[field] = value
	return e
}

// httpCode2ErrorCode makes lower camel case code from the status text ("Request Entity Too Large" -> "requestEntityTooLarge").
func httpCode2ErrorCode(httpCode int) string {
	if httpCode == http.StatusInternalServerError {
		return ErrCodeInternal
	}
	words := strings.FieldsFunc(http.StatusText(httpCode), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 && w != "" {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		words[i] = w
	}
	return strings.Join(words, "")
}
