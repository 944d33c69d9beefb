/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-apiconsole/log"
)

type writerEntryWriter struct {
	sync.Mutex
	encoder logf.Encoder
	output  io.Writer
}

//nolint:gocritic
func (ew *writerEntryWriter) WriteEntry(e logf.Entry) {
	ew.Lock()
	defer ew.Unlock()
	var buf logf.Buffer
	if err := ew.encoder.Encode(&buf, e); err != nil {
		_, _ = fmt.Fprint(ew.output, err)
		return
	}
	_, _ = ew.output.Write(buf.Data)
}

// NewLogger returns a debug-level JSON logger writing to w (stderr if w is nil).
// It's synchronous and slow, use it in tests only.
func NewLogger(w io.Writer) log.FieldLogger {
	if w == nil {
		w = os.Stderr
	}
	ew := &writerEntryWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{EncodeTime: logf.RFC3339NanoTimeEncoder, FieldKeyTime: "time"}),
		output:  w,
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, ew)}
}
