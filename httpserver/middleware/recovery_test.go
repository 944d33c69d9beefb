/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/log/logtest"
	"github.com/acronis/go-apiconsole/restapi"
	"github.com/acronis/go-apiconsole/testutil"
)

func TestRecoveryHandler_ServeHTTP(t *testing.T) {
	const errDomain = "Console"

	panicking := func(v interface{}) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { panic(v) })
	}

	t.Run("recovery without logger", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp := httptest.NewRecorder()
		handler := Recovery(errDomain)(panicking("boom"))

		require.NotPanics(t, func() { handler.ServeHTTP(resp, req) })
		testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, errDomain, restapi.ErrCodeInternal)
	})

	t.Run("recovery with logger", func(t *testing.T) {
		const stackSize = 10
		logger := logtest.NewRecorder()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()
		handler := RecoveryWithOpts(errDomain, RecoveryOpts{StackSize: stackSize})(panicking("boom"))

		require.NotPanics(t, func() { handler.ServeHTTP(resp, req) })
		testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, errDomain, restapi.ErrCodeInternal)

		entry, found := logger.FindEntry("Panic: boom")
		require.True(t, found)
		require.Equal(t, log.LevelError, entry.Level)
		field, found := entry.FindField("stack")
		require.True(t, found)
		require.Len(t, field.Bytes, stackSize)
	})

	t.Run("abort handler panic is propagated", func(t *testing.T) {
		logger := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		handler := Recovery(errDomain)(panicking(http.ErrAbortHandler))

		require.PanicsWithValue(t, http.ErrAbortHandler, func() { handler.ServeHTTP(httptest.NewRecorder(), req) })
		entry, found := logger.FindEntry("request has been aborted")
		require.True(t, found)
		require.Equal(t, log.LevelWarn, entry.Level)
	})
}
