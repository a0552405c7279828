// internal/logger/app_logger.go

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/orgoj/mongolog/record"
)

// AppLogger is the internal application logger. It reports on mongolog itself
// (rejected records, driver messages, tool status) and never goes through a store.
type AppLogger struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
	level  record.Level
}

// Global instance
var (
	defaultLogger *AppLogger
	once          sync.Once
)

// GetAppLogger returns the singleton instance of the application logger
func GetAppLogger() *AppLogger {
	once.Do(func() {
		defaultLogger = NewAppLogger(os.Stderr, record.WARN)
	})
	return defaultLogger
}

// NewAppLogger creates a standalone logger writing to w.
func NewAppLogger(w io.Writer, level record.Level) *AppLogger {
	return &AppLogger{writer: w, level: level}
}

// SetLogLevel sets the minimum log level
func (l *AppLogger) SetLogLevel(level record.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetLogLevelFromString sets the log level from a string name
func (l *AppLogger) SetLogLevelFromString(levelName string) error {
	level, err := record.ParseLevel(levelName)
	if err != nil {
		return err
	}
	l.SetLogLevel(level)
	return nil
}

// SetOutput redirects output to w. A previously opened log file is closed.
func (l *AppLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	l.writer = w
}

// SetOutputFile appends output to the file at path, creating it if needed.
func (l *AppLogger) SetOutputFile(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	l.writer = file
	l.closer = file
	return nil
}

// Writer returns the current output.
func (l *AppLogger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer
}

// Close closes an output file opened by SetOutputFile.
func (l *AppLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *AppLogger) closeLocked() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Enabled reports whether messages at level would be written.
func (l *AppLogger) Enabled(level record.Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// Logf formats and logs a message if the level is sufficient.
// Lock is only held during the level check and the write, not during formatting.
func (l *AppLogger) Logf(level record.Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	now := time.Now().Format("2006-01-02T15:04:05Z07:00")
	message := fmt.Sprintf(format, args...)
	logLine := fmt.Sprintf("[%s] %s: %s\n", now, level, message)

	l.mu.Lock()
	_, _ = fmt.Fprint(l.writer, logLine)
	l.mu.Unlock()

	// Immediately exit for FATAL logs
	if level == record.FATAL {
		os.Exit(1)
	}
}

// Debug logs a message at DEBUG level
func (l *AppLogger) Debug(format string, args ...interface{}) {
	l.Logf(record.DEBUG, format, args...)
}

// Info logs a message at INFO level
func (l *AppLogger) Info(format string, args ...interface{}) {
	l.Logf(record.INFO, format, args...)
}

// Warn logs a message at WARN level
func (l *AppLogger) Warn(format string, args ...interface{}) {
	l.Logf(record.WARN, format, args...)
}

// Error logs a message at ERROR level
func (l *AppLogger) Error(format string, args ...interface{}) {
	l.Logf(record.ERROR, format, args...)
}

// Fatal logs a message at FATAL level and exits the program
func (l *AppLogger) Fatal(format string, args ...interface{}) {
	l.Logf(record.FATAL, format, args...)
}
