package log

import (
	"io"
	"os"
	"path/filepath"

	"github.com/kataras/golog"
)

// GologLogger implements Logger using kataras/golog.
type GologLogger struct {
	logger *golog.Logger
	level  LogLevel
	file   *os.File
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger creates a logger writing to stderr.
func NewGologLogger(level LogLevel) *GologLogger {
	logger := golog.New()
	logger.SetOutput(os.Stderr)
	l := &GologLogger{logger: logger}
	l.SetLevel(level)
	return l
}

// NewRunLogger creates a logger that writes both to stderr and to
// <logDir>/run.log, creating the directory if needed. The file handle
// stays open for the lifetime of the process; Close releases it.
func NewRunLogger(logDir string, level LogLevel) (*GologLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(logDir, "run.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	logger := golog.New()
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	l := &GologLogger{logger: logger, file: f}
	l.SetLevel(level)
	l.Info("log file: %s", path)
	return l, nil
}

// Close closes the underlying log file, if any.
func (l *GologLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Debug logs debug messages
func (l *GologLogger) Debug(format string, v ...any) {
	if l.level <= LogLevelDebug {
		l.logger.Debugf(format, v...)
	}
}

// Info logs informational messages
func (l *GologLogger) Info(format string, v ...any) {
	if l.level <= LogLevelInfo {
		l.logger.Infof(format, v...)
	}
}

// Warn logs warning messages
func (l *GologLogger) Warn(format string, v ...any) {
	if l.level <= LogLevelWarn {
		l.logger.Warnf(format, v...)
	}
}

// Error logs error messages
func (l *GologLogger) Error(format string, v ...any) {
	if l.level <= LogLevelError {
		l.logger.Errorf(format, v...)
	}
}

// SetLevel sets the log level
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level = level

	gologLevel := "info"
	switch level {
	case LogLevelDebug:
		gologLevel = "debug"
	case LogLevelInfo:
		gologLevel = "info"
	case LogLevelWarn:
		gologLevel = "warn"
	case LogLevelError:
		gologLevel = "error"
	case LogLevelNone:
		gologLevel = "disable"
	}
	l.logger.SetLevel(gologLevel)
}

// GetLevel returns the current log level
func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}
