/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides loggers for tests.
package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-apiconsole/log"
)

// RecordedEntry is a single logged message with its fields, derived ones first.
type RecordedEntry struct {
	Level  log.Level
	Time   time.Time
	Text   string
	Fields []log.Field
}

// FindField returns the first field with the given key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

// journal is shared by a Recorder and all loggers derived from it.
type journal struct {
	mu      sync.Mutex
	entries []RecordedEntry
}

var levelsFromLogf = map[logf.Level]log.Level{
	logf.LevelError: log.LevelError,
	logf.LevelWarn:  log.LevelWarn,
	logf.LevelInfo:  log.LevelInfo,
	logf.LevelDebug: log.LevelDebug,
}

//nolint:gocritic
func (j *journal) WriteEntry(e logf.Entry) {
	entry := RecordedEntry{Level: levelsFromLogf[e.Level], Time: e.Time, Text: e.Text}
	entry.Fields = append(append(entry.Fields, e.DerivedFields...), e.Fields...)
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func (j *journal) snapshot() []RecordedEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]RecordedEntry(nil), j.entries...)
}

// Recorder is a debug-level log.FieldLogger that remembers every entry.
type Recorder struct {
	*log.LogfAdapter
	journal *journal
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	j := &journal{}
	return &Recorder{LogfAdapter: &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, j)}, journal: j}
}

func (r *Recorder) derive(l log.FieldLogger) *Recorder {
	return &Recorder{LogfAdapter: l.(*log.LogfAdapter), journal: r.journal}
}

// With returns a Recorder writing into the same journal.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return r.derive(r.LogfAdapter.With(fs...))
}

// WithLevel returns a Recorder writing into the same journal.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return r.derive(r.LogfAdapter.WithLevel(level))
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	return r.journal.snapshot()
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(e RecordedEntry) bool { return e.Text == msg })
}

// FindEntryByFilter returns the first entry accepted by filter.
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	for _, e := range r.journal.snapshot() {
		if filter(e) {
			return e, true
		}
	}
	return RecordedEntry{}, false
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.journal.mu.Lock()
	r.journal.entries = nil
	r.journal.mu.Unlock()
}
