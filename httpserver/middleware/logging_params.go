/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-apiconsole/log"
)

// msSlots is encoded as a nested JSON object of millisecond counters.
type msSlots map[string]int64

func (s msSlots) EncodeLogfObject(e logf.FieldEncoder) error {
	for name, ms := range s {
		e.EncodeFieldInt64(name, ms)
	}
	return nil
}

// LoggingParams collects fields that handlers and the outgoing HTTP client contribute
// to the access log line written by Logging. It is safe for concurrent use.
type LoggingParams struct {
	mu     sync.Mutex
	fields []log.Field
	slots  msSlots
}

// ExtendFields appends fields to the access log line.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	lp.fields = append(lp.fields, fields...)
	lp.mu.Unlock()
}

// AddTimeSlotDurationInMs accumulates dur under name in the "time_slots" object.
// Slots are logged for slow requests only.
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.slots == nil {
		lp.slots = msSlots{}
	}
	lp.slots[name] += dur.Milliseconds()
}

func (lp *LoggingParams) logFields(slow bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	out := make([]log.Field, len(lp.fields), len(lp.fields)+1)
	copy(out, lp.fields)
	if slow && len(lp.slots) > 0 {
		out = append(out, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: lp.slots})
	}
	return out
}
