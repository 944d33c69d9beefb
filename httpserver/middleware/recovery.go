/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/acronis/go-apiconsole/log"
	"github.com/acronis/go-apiconsole/restapi"
)

// RecoveryDefaultStackSize is how many bytes of the goroutine stack are logged on panic.
const RecoveryDefaultStackSize = 8192

// RecoveryOpts configures RecoveryWithOpts. Zero StackSize disables stack logging.
type RecoveryOpts struct {
	StackSize int
}

// Recovery turns a handler panic into a logged error and a 500 response.
func Recovery(errDomain string) func(next http.Handler) http.Handler {
	return RecoveryWithOpts(errDomain, RecoveryOpts{StackSize: RecoveryDefaultStackSize})
}

// RecoveryWithOpts is Recovery with a custom stack size.
// http.ErrAbortHandler, which the relay's reverse proxy uses to drop a broken stream, is re-panicked.
func RecoveryWithOpts(errDomain string, opts RecoveryOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					handlePanic(rw, r, p, errDomain, opts.StackSize)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

func handlePanic(rw http.ResponseWriter, r *http.Request, p interface{}, errDomain string, stackSize int) {
	logger := GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	if p == http.ErrAbortHandler {
		logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
		panic(p)
	}

	var fields []log.Field
	if stackSize > 0 {
		buf := make([]byte, stackSize)
		fields = append(fields, log.Bytes("stack", buf[:runtime.Stack(buf, false)]))
	}
	logger.Error(fmt.Sprintf("Panic: %+v", p), fields...)
	restapi.RespondInternalError(rw, errDomain, logger)
}
