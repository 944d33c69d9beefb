/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"
	"io"

	"github.com/ssgreg/logf"
)

// StringMasker hides secrets inside a string.
type StringMasker interface {
	Mask(s string) string
}

type maskingLogger struct {
	next   FieldLogger
	masker StringMasker
}

// NewMaskingLogger returns a logger that passes messages, string-like fields and errors
// through m before handing them to l.
func NewMaskingLogger(l FieldLogger, m StringMasker) FieldLogger {
	return &maskingLogger{next: l, masker: m}
}

func (l *maskingLogger) With(fs ...Field) FieldLogger {
	return &maskingLogger{next: l.next.With(l.fields(fs)...), masker: l.masker}
}

func (l *maskingLogger) WithLevel(level Level) FieldLogger {
	return &maskingLogger{next: l.next.WithLevel(level), masker: l.masker}
}

func (l *maskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.next.AtLevel(level, func(write LogFunc) {
		fn(func(msg string, fs ...Field) {
			write(l.masker.Mask(msg), l.fields(fs)...)
		})
	})
}

func (l *maskingLogger) Debug(msg string, fs ...Field) {
	l.next.Debug(l.masker.Mask(msg), l.fields(fs)...)
}

func (l *maskingLogger) Info(msg string, fs ...Field) {
	l.next.Info(l.masker.Mask(msg), l.fields(fs)...)
}

func (l *maskingLogger) Warn(msg string, fs ...Field) {
	l.next.Warn(l.masker.Mask(msg), l.fields(fs)...)
}

func (l *maskingLogger) Error(msg string, fs ...Field) {
	l.next.Error(l.masker.Mask(msg), l.fields(fs)...)
}

func (l *maskingLogger) Debugf(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args)
}

func (l *maskingLogger) Infof(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args)
}

func (l *maskingLogger) Warnf(format string, args ...interface{}) {
	l.printf(LevelWarn, format, args)
}

func (l *maskingLogger) Errorf(format string, args ...interface{}) {
	l.printf(LevelError, format, args)
}

func (l *maskingLogger) printf(level Level, format string, args []interface{}) {
	l.AtLevel(level, func(write LogFunc) {
		write(fmt.Sprintf(format, args...))
	})
}

// fields returns fs unchanged when nothing was masked.
func (l *maskingLogger) fields(fs []Field) []Field {
	var out []Field
	for i := range fs {
		masked, changed := l.field(fs[i])
		if !changed {
			continue
		}
		if out == nil {
			out = append([]Field(nil), fs...)
		}
		out[i] = masked
	}
	if out == nil {
		return fs
	}
	return out
}

func (l *maskingLogger) field(f Field) (Field, bool) {
	switch f.Type {
	case logf.FieldTypeBytesToString:
		if s, ok := l.changed(string(f.Bytes)); ok {
			return String(f.Key, s), true
		}
	case logf.FieldTypeBytes, logf.FieldTypeRawBytes:
		if s, ok := l.changed(string(f.Bytes)); ok {
			return logf.ConstBytes(f.Key, []byte(s)), true
		}
	case logf.FieldTypeError:
		err, _ := f.Any.(error)
		if err == nil {
			break
		}
		if s, ok := l.changed(err.Error()); ok {
			return NamedError(f.Key, l.maskError(err, s)), true
		}
	}
	return f, false
}

func (l *maskingLogger) changed(s string) (string, bool) {
	masked := l.masker.Mask(s)
	return masked, masked != s
}

// maskError keeps "%+v" output of formatters (stack traces) masked too.
func (l *maskingLogger) maskError(err error, masked string) error {
	if _, ok := err.(fmt.Formatter); !ok {
		return errors.New(masked)
	}
	return &maskedError{msg: masked, verbose: l.masker.Mask(fmt.Sprintf("%+v", err))}
}

type maskedError struct {
	msg     string
	verbose string
}

func (e *maskedError) Error() string {
	return e.msg
}

func (e *maskedError) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.verbose)
}
