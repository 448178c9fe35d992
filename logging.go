// logging.go - structured logging seam for the task runtime.
//
// This mirrors the eventloop package's logging design: a small built-in
// Logger interface with a low-overhead default implementation, plus a
// package-level global so embedders can plug in a real structured logging
// framework (logiface, zerolog, logrus, ...) without this package taking a
// direct dependency on any one of them. Tests exercise the seam by
// adapting github.com/joeycumines/logiface's generic Event/Logger onto
// this interface, the same way the eventloop package's own tests do.
package task

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// LogLevel is the severity of a LogEntry.
type LogLevel int32

const (
	// LevelDebug is for detailed diagnostic information (e.g. task
	// lifecycle transitions).
	LevelDebug LogLevel = iota
	// LevelWarn is for recovered body panics.
	LevelWarn
	// LevelError is for protocol violations about to be turned into a
	// panic.
	LevelError
)

// String returns a human-readable name for l.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(l))
	}
}

// LogEntry is a single structured log record produced by this package.
type LogEntry struct {
	Level   LogLevel
	Time    time.Time
	Message string
	TaskID  int32
	Fields  map[string]any
}

// Logger receives LogEntry values produced by the task runtime. A nil
// *Task-scoped logger falls back to the package-level global logger.
type Logger interface {
	Log(entry LogEntry)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(entry LogEntry)

// Log calls f(entry).
func (f LoggerFunc) Log(entry LogEntry) { f(entry) }

// noopLogger discards every entry. It is the zero-configuration default.
type noopLogger struct{}

func (noopLogger) Log(LogEntry) {}

// defaultLogger writes entries to stderr using the standard log package's
// formatting conventions, for embedders who want visibility without
// wiring a structured backend.
type defaultLogger struct {
	minLevel LogLevel
}

// NewDefaultLogger returns a Logger that writes entries at or above
// minLevel to stderr.
func NewDefaultLogger(minLevel LogLevel) Logger {
	return &defaultLogger{minLevel: minLevel}
}

func (l *defaultLogger) Log(entry LogEntry) {
	if entry.Level < l.minLevel {
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] %s task=%d %s %v\n",
		entry.Time.Format(time.RFC3339Nano), entry.Level, entry.TaskID, entry.Message, entry.Fields)
}

var globalLogger struct {
	sync.RWMutex
	logger Logger
}

// SetStructuredLogger installs logger as the package-wide default used by
// tasks constructed without WithLogger.
func SetStructuredLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

// getGlobalLogger safely retrieves the global logger, defaulting to a
// no-op implementation.
func getGlobalLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return noopLogger{}
}

// logBodyPanic logs a recovered Task body panic at LevelWarn.
func (t *Task) logBodyPanic(perr *PanicError) {
	t.logger.Log(LogEntry{
		Level:   LevelWarn,
		Time:    time.Now(),
		Message: "task body exited via panic",
		TaskID:  t.id,
		Fields:  map[string]any{"name": t.name, "panic": perr.Value},
	})
}

// logViolation logs a protocol violation at LevelError. The runtime's own
// violation sites panic with a *Violation without calling it.
func (t *Task) logViolation(v *Violation) {
	t.logger.Log(LogEntry{
		Level:   LevelError,
		Time:    time.Now(),
		Message: v.Msg,
		TaskID:  t.id,
		Fields:  map[string]any{"op": v.Op, "state": v.State},
	})
}
