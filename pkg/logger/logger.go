package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the printf-style logger shared by every service.
type Logger struct {
	l *log.Logger
}

func New() *Logger {
	return NewWithWriter(os.Stderr)
}

func NewWithWriter(w io.Writer) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
		l.SetLevel(level)
	}
	return &Logger{l: l}
}

// With returns a logger that prefixes every line with the given key/value pairs.
func (lg *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}

func (lg *Logger) Debug(format string, args ...interface{}) {
	lg.l.Debugf(format, args...)
}

func (lg *Logger) Info(format string, args ...interface{}) {
	lg.l.Infof(format, args...)
}

func (lg *Logger) Warn(format string, args ...interface{}) {
	lg.l.Warnf(format, args...)
}

func (lg *Logger) Error(format string, args ...interface{}) {
	lg.l.Errorf(format, args...)
}

func (lg *Logger) Fatal(format string, args ...interface{}) {
	lg.l.Fatalf(format, args...)
}

// Printf lets the logger back third-party printf loggers (cron, goose).
func (lg *Logger) Printf(format string, args ...interface{}) {
	lg.l.Infof(format, args...)
}
