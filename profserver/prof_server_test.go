/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-apiconsole/log/logtest"
	"github.com/acronis/go-apiconsole/testutil"
)

func TestProfServer_Start(t *testing.T) {
	profServer := New(&Config{Address: "127.0.0.1:0"}, logtest.NewRecorder())
	require.Equal(t, -1, profServer.GetPort())

	fatalErr := make(chan error, 1)
	go profServer.Start(fatalErr)
	port, err := testutil.WaitPortAndListeningServer("127.0.0.1", profServer.GetPort, 3*time.Second)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, profServer.Stop(false))
		testutil.RequireNoErrorInChannel(t, fatalErr)
	}()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/debug/pprof/", port))
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotEmpty(t, respBody)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestProfServer_StartOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { require.NoError(t, ln.Close()) }()

	profServer := New(&Config{Address: ln.Addr().String()}, logtest.NewRecorder())
	fatalErr := make(chan error, 1)
	go profServer.Start(fatalErr)

	select {
	case err = <-fatalErr:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "fatal error is expected")
	}
}
