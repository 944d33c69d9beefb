/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/log"
)

func TestRecorder(t *testing.T) {
	recorder := NewRecorder()
	logger := recorder.With(log.String("request_id", "r1"))
	logger.Warn("request failed", log.Int("status", 502))
	logger.WithLevel(log.LevelError).Info("dropped")
	recorder.Debug("debug message")

	require.Len(t, recorder.Entries(), 2)

	entry, found := recorder.FindEntry("request failed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)
	field, found := entry.FindField("status")
	require.True(t, found)
	require.Equal(t, 502, int(field.Int))
	field, found = entry.FindField("request_id")
	require.True(t, found)
	require.Equal(t, "r1", string(field.Bytes))

	_, found = recorder.FindEntry("dropped")
	require.False(t, found)

	recorder.Reset()
	require.Empty(t, recorder.Entries())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf).Info("hello", log.String("queue", "default"))
	require.Contains(t, buf.String(), `"msg":"hello"`)
	require.Contains(t, buf.String(), `"queue":"default"`)
}
