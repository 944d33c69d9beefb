/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides the structured logger used by all console components.
// It is a thin layer over logf with configurable output and secret masking.
package log

import (
	"fmt"
	"time"

	"github.com/ssgreg/logf"
)

// Field is a typed key-value pair attached to a log entry.
type Field = logf.Field

// LogFunc writes a message at a level bound by AtLevel.
// nolint: revive
type LogFunc = logf.LogFunc

// CloseFunc flushes pending entries and releases the output.
type CloseFunc logf.ChannelWriterCloseFunc

// Field constructors re-exported from logf so callers import one package.
var (
	String     = logf.String
	Strings    = logf.Strings
	Bytes      = logf.Bytes
	Int        = logf.Int
	Int64      = logf.Int64
	Uint64     = logf.Uint64
	Float64    = logf.Float64
	Bool       = logf.Bool
	Time       = logf.Time
	Duration   = logf.Duration
	Any        = logf.Any
	Error      = logf.Error
	NamedError = logf.NamedError
)

// DurationIn reports val as an integer number of units under the "duration" key.
func DurationIn(val, unit time.Duration) Field {
	return Int64("duration", int64(val/unit))
}

// FieldLogger is the logging interface passed through the console.
type FieldLogger interface {
	With(...Field) FieldLogger

	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)

	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})

	AtLevel(Level, func(LogFunc))
	WithLevel(level Level) FieldLogger
}

var logfLevels = map[Level]logf.Level{
	LevelError: logf.LevelError,
	LevelWarn:  logf.LevelWarn,
	LevelInfo:  logf.LevelInfo,
	LevelDebug: logf.LevelDebug,
}

// toLogfLevel maps unknown levels to info.
func toLogfLevel(level Level) logf.Level {
	if l, ok := logfLevels[level]; ok {
		return l
	}
	return logf.LevelInfo
}

// NewLogger builds a logger from cfg. The returned CloseFunc must be called before exit.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	writer, closeWriter := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg),
		EnableSyncOnError: true,
	})

	base := logf.NewLogger(toLogfLevel(cfg.Level), writer).With(processIDField())
	if cfg.AddCaller {
		base = base.WithCaller().WithCallerSkip(1) // adapter frame
	}

	var logger FieldLogger = &LogfAdapter{Logger: base}
	if cfg.Masking.Enabled {
		logger = NewMaskingLogger(logger, NewMasker(cfg.Masking.effectiveRules()))
	}
	return logger, CloseFunc(closeWriter)
}

// NewDisabledLogger returns a logger that drops everything.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{Logger: logf.NewDisabledLogger()}
}

// LogfAdapter implements FieldLogger on top of *logf.Logger.
type LogfAdapter struct {
	Logger *logf.Logger
}

// With returns a child logger carrying fs.
func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.With(fs...)}
}

// WithLevel returns a child logger that additionally drops messages below level.
func (l *LogfAdapter) WithLevel(level Level) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.WithLevel(toLogfLevel(level))}
}

// AtLevel calls fn only when level is enabled.
func (l *LogfAdapter) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.Logger.AtLevel(toLogfLevel(level), fn)
}

// Debug logs a message at the debug level.
func (l *LogfAdapter) Debug(msg string, fs ...Field) {
	l.Logger.Debug(msg, fs...)
}

// Info logs a message at the info level.
func (l *LogfAdapter) Info(msg string, fs ...Field) {
	l.Logger.Info(msg, fs...)
}

// Warn logs a message at the warning level.
func (l *LogfAdapter) Warn(msg string, fs ...Field) {
	l.Logger.Warn(msg, fs...)
}

// Error logs a message at the error level.
func (l *LogfAdapter) Error(msg string, fs ...Field) {
	l.Logger.Error(msg, fs...)
}

// Debugf logs a formatted message at the debug level.
func (l *LogfAdapter) Debugf(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args)
}

// Infof logs a formatted message at the info level.
func (l *LogfAdapter) Infof(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args)
}

// Warnf logs a formatted message at the warning level.
func (l *LogfAdapter) Warnf(format string, args ...interface{}) {
	l.printf(LevelWarn, format, args)
}

// Errorf logs a formatted message at the error level.
func (l *LogfAdapter) Errorf(format string, args ...interface{}) {
	l.printf(LevelError, format, args)
}

// printf formats lazily, only after the level check.
func (l *LogfAdapter) printf(level Level, format string, args []interface{}) {
	l.AtLevel(level, func(write LogFunc) {
		write(fmt.Sprintf(format, args...))
	})
}
