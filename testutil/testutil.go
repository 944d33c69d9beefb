/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains testify-based assertions for HTTP responses, errors, metrics and listening servers.
package testutil

import "github.com/stretchr/testify/require"

// markHelper calls t.Helper when t is a *testing.T or alike.
func markHelper(t require.TestingT) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
}

// RequireNoErrorInChannel fails if the buffered channel already holds a non-nil error.
// It is used for fatal error channels of service units after they have been stopped.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	markHelper(t)
	select {
	case err := <-c:
		require.NoError(t, err, msgAndArgs...)
	default:
	}
}
