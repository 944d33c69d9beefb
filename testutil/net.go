/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const waitPollInterval = 10 * time.Millisecond

// WaitListeningServer waits until the server is ready to accept TCP connections on the passing address.
func WaitListeningServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("waiting for listening server on %s timed out", addr)
		}
		time.Sleep(waitPollInterval)
	}
}

// WaitPortAndListeningServer waits until the port becomes known (getPort returns a positive value)
// and the server is ready to accept TCP connections on it.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	port := getPort()
	for port <= 0 {
		if time.Now().After(deadline) {
			return 0, errors.New("waiting for listening port timed out")
		}
		time.Sleep(waitPollInterval)
		port = getPort()
	}
	return port, WaitListeningServer(net.JoinHostPort(host, fmt.Sprint(port)), time.Until(deadline))
}
