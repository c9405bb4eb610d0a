// Package logger wraps a structured logging backend behind the same
// injectable-sink shape the teacher repo exposed around the standard
// library's log.Logger, swapping the backend for logrus so the ambient
// stack matches the rest of the retrieved corpus (awused/manga-syncer).
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is an injectable logging sink. The zero value is not usable; use
// New.
type Logger struct {
	onLog  func(format string, a ...any)
	logrus *logrus.Logger
	prefix string
}

// New constructs a Logger that discards output until SetOutput is called,
// matching the teacher's NewLogger default of writing to io.Discard.
func New() *Logger {
	backend := logrus.New()
	backend.SetOutput(io.Discard)
	backend.SetFormatter(&logrus.TextFormatter{
		DisableColors:   false,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	return &Logger{
		onLog:  func(string, ...any) {},
		logrus: backend,
	}
}

func (l *Logger) SetPrefix(prefix string) {
	l.prefix = prefix
}

func (l *Logger) GetPrefix() string {
	return l.prefix
}

func (l *Logger) SetOutput(w io.Writer) {
	l.logrus.SetOutput(w)
}

// SetLevel sets the minimum logrus level that reaches the output writer.
func (l *Logger) SetLevel(level logrus.Level) {
	l.logrus.SetLevel(level)
}

// SetOnLog installs a hook invoked on every Log/Warn call (not Debug), in addition to
// the backend write — used by CLI layers to drive a progress widget.
func (l *Logger) SetOnLog(hook func(format string, a ...any)) {
	if hook == nil {
		hook = func(string, ...any) {}
	}
	l.onLog = hook
}

func (l *Logger) format(format string) string {
	if l.prefix == "" {
		return format
	}
	return l.prefix + ": " + format
}

// Log writes an info-level message.
func (l *Logger) Log(format string, a ...any) {
	full := l.format(format)
	l.onLog(full, a...)
	l.logrus.Infof(full, a...)
}

// Debug writes a debug-level message — used for diagnostics that spec §7
// says must never be surfaced above debug (e.g. ParseWarning).
func (l *Logger) Debug(format string, a ...any) {
	full := l.format(format)
	l.logrus.Debugf(full, a...)
}

// Warn writes a warning-level message, used for recovered-but-notable
// conditions such as an IndexCollision.
func (l *Logger) Warn(format string, a ...any) {
	full := l.format(format)
	l.onLog(full, a...)
	l.logrus.Warnf(full, a...)
}
