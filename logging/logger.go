// Package logging provides the structured logger shared by the loader and the
// filter hosts. Entries are written through logrus; every logger may carry a
// source name that is attached as the "source" field.
package logging

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/centraunit/corekit/config"
)

const (
	// FieldSource names the field holding the logger source.
	FieldSource = "source"
	// FieldDetails names the field holding non-map details.
	FieldDetails = "details"
	// FieldError names the field holding the error built by error helpers.
	FieldError = "error"
)

// Logger writes leveled, structured entries. The zero value is not usable;
// construct one with New, FromLogrus or Discard.
type Logger struct {
	entry  *logrus.Entry
	source string
}

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(FromLogrus(logrus.StandardLogger()))
}

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger. A nil logger installs Discard.
func SetDefault(l *Logger) {
	if l == nil {
		l = Discard()
	}
	defaultLogger.Store(l)
}

// New builds a logger from configuration, writing to stderr.
func New(cfg config.Logging) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(level.logrus())
	if cfg.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	l := FromLogrus(base)
	if cfg.Source != "" {
		l = l.WithSource(cfg.Source)
	}
	return l, nil
}

// FromLogrus wraps an existing logrus logger.
func FromLogrus(base *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(base)}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.PanicLevel)
	return FromLogrus(base)
}

// Source returns the source name, or "" when none was set.
func (l *Logger) Source() string {
	return l.source
}

// WithSource returns a logger writing to the same backend under a new source.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		entry:  l.entry.WithField(FieldSource, source),
		source: source,
	}
}

// WithFields returns a logger that attaches fields to every entry.
func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	return &Logger{
		entry:  l.entry.WithFields(fields),
		source: l.source,
	}
}

// Entry exposes the underlying logrus entry.
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

// ShouldLog reports whether entries at level would be written.
func (l *Logger) ShouldLog(level Level) bool {
	return l.entry.Logger.IsLevelEnabled(level.logrus())
}

// Log writes message at level. Details are attached as fields: a single
// logrus.Fields or map[string]any is merged, anything else is stored under
// "details". Fatal entries never terminate the process.
func (l *Logger) Log(level Level, message string, details ...any) {
	l.log(level, message, nil, details)
}

func (l *Logger) log(level Level, message string, err error, details []any) {
	lv := level.logrus()
	if !l.entry.Logger.IsLevelEnabled(lv) {
		return
	}
	entry := l.entry
	if fields := detailFields(details); len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	if err != nil {
		entry = entry.WithField(FieldError, err)
	}
	entry.Log(lv, message)
}

func detailFields(details []any) logrus.Fields {
	switch len(details) {
	case 0:
		return nil
	case 1:
		switch d := details[0].(type) {
		case logrus.Fields:
			return d
		case map[string]any:
			return logrus.Fields(d)
		case nil:
			return nil
		}
		return logrus.Fields{FieldDetails: details[0]}
	}
	return logrus.Fields{FieldDetails: details}
}

func (l *Logger) Trace(message string, details ...any) {
	l.log(LevelTrace, message, nil, details)
}

func (l *Logger) Debug(message string, details ...any) {
	l.log(LevelDebug, message, nil, details)
}

func (l *Logger) Info(message string, details ...any) {
	l.log(LevelInformation, message, nil, details)
}

// Warn logs at warning level.
func (l *Logger) Warn(message string, details ...any) {
	l.log(LevelWarning, message, nil, details)
}

// Error logs at error level.
func (l *Logger) Error(message string, details ...any) {
	l.log(LevelError, message, nil, details)
}

// Fail logs message at fatal level and returns it as an error for the caller
// to propagate.
func (l *Logger) Fail(message string, details ...any) error {
	err := &MessageError{Message: message}
	l.log(LevelFatal, message, err, details)
	return err
}

// InvalidArgument logs at level and returns an *ArgumentError.
func (l *Logger) InvalidArgument(level Level, message string, details ...any) error {
	if message == "" {
		message = "invalid argument"
	}
	err := &ArgumentError{Message: message}
	l.log(level, message, err, details)
	return err
}

// NotImplemented logs at level and returns a *NotImplementedError.
func (l *Logger) NotImplemented(level Level, message string, details ...any) error {
	if message == "" {
		message = "not implemented"
	}
	err := &NotImplementedError{Message: message}
	l.log(level, message, err, details)
	return err
}

// AssertFailed logs at level and returns a *FailedAssertionError.
func (l *Logger) AssertFailed(level Level, message string, details ...any) error {
	if message == "" {
		message = "failed assertion"
	}
	err := &FailedAssertionError{Message: message}
	l.log(level, message, err, details)
	return err
}

// Unexpected logs at level and returns an *UnexpectedError.
func (l *Logger) Unexpected(level Level, message string, details ...any) error {
	if message == "" {
		message = "unexpected"
	}
	err := &UnexpectedError{Message: message}
	l.log(level, message, err, details)
	return err
}

// InvalidOperation logs at level and returns an *InvalidOperationError.
func (l *Logger) InvalidOperation(level Level, message string, details ...any) error {
	if message == "" {
		message = "invalid operation"
	}
	err := &InvalidOperationError{Message: message}
	l.log(level, message, err, details)
	return err
}
