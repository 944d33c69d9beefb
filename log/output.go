/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

func processIDField() Field {
	return Int("pid", os.Getpid())
}

func newAppender(cfg *Config) logf.Appender {
	w := openOutput(cfg)
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{NoColor: &noColor, EncodeTime: logf.RFC3339NanoTimeEncoder})
	}
	enc := logf.NewJSONEncoder(logf.JSONEncoderConfig{FieldKeyTime: "time", EncodeTime: logf.RFC3339NanoTimeEncoder})
	return logf.NewWriteAppender(w, enc)
}

func openOutput(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputStderr:
		return os.Stderr
	case OutputFile:
		rot := cfg.File.Rotation
		return &lumberjack.Logger{
			Filename:   expandLogPath(cfg.File.Path, time.Now()),
			MaxSize:    int(rot.MaxSize >> 20), // megabytes
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAgeDays,
			Compress:   rot.Compress,
		}
	default:
		return os.Stdout
	}
}

// expandLogPath substitutes {{starttime}} and {{pid}}.
func expandLogPath(path string, now time.Time) string {
	if !strings.Contains(path, "{{") {
		return path
	}
	return strings.NewReplacer(
		"{{starttime}}", now.Format("200601021504"),
		"{{pid}}", strconv.Itoa(os.Getpid()),
	).Replace(path)
}
