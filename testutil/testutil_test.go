/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingT is a require.TestingT that remembers failures instead of stopping the test.
type recordingT struct {
	failed bool
	msg    string
}

func (t *recordingT) FailNow() { t.failed = true }

func (t *recordingT) Errorf(format string, _ ...interface{}) { t.msg = format }

func TestRequireNoErrorInChannel(t *testing.T) {
	ch := make(chan error, 1)

	rt := &recordingT{}
	RequireNoErrorInChannel(rt, ch)
	require.False(t, rt.failed, "empty channel")

	ch <- nil
	RequireNoErrorInChannel(rt, ch)
	require.False(t, rt.failed, "nil error")

	ch <- errors.New("listen tcp: address already in use")
	RequireNoErrorInChannel(rt, ch)
	require.True(t, rt.failed)
	require.Empty(t, ch)
}
