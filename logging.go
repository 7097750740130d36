// Package-level structured logging, kept deliberately minimal.
//
// Design decision: logging is an infrastructure cross-cutting concern shared
// by every Selector instance, so the logger lives as a package-level
// variable rather than a constructor argument threaded through every type in
// this package. Callers who want a real logging backend (leveled, sink-based,
// structured) should use the reactorlog adapter package, which binds this
// interface to github.com/joeycumines/logiface; this package itself does not
// depend on any logging backend.
package reactor

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// LogLevel is the severity of a log entry.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry is a single structured log record.
type LogEntry struct {
	Level   LogLevel
	Message string
	FD      int // socket handle, or -1 if not channel-scoped
	Err     error
}

// Logger is the structured logging interface the reactor calls into. It is
// intentionally narrow: two methods, one entry shape.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

var globalLogger struct {
	sync.RWMutex
	logger Logger
}

// SetLogger installs the package-level logger. New reads it once, at
// construction, for a Selector not given one via WithLogger; Selectors
// constructed before the call keep the logger they already hold.
func SetLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getGlobalLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(LogEntry) {}

func (noOpLogger) IsEnabled(LogLevel) bool { return false }

// StdLogger is a basic Logger writing to an *os.File, filtered by a minimum
// level. It exists so the package is usable without pulling in an adapter.
type StdLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   *os.File
}

// NewStdLogger creates a Logger with the given minimum level, writing to
// os.Stderr.
func NewStdLogger(level LogLevel) *StdLogger {
	l := &StdLogger{Out: os.Stderr}
	l.level.Store(int32(level))
	return l
}

func (l *StdLogger) IsEnabled(level LogLevel) bool {
	return int32(level) >= l.level.Load()
}

func (l *StdLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.FD >= 0 {
		if entry.Err != nil {
			fmt.Fprintf(l.Out, "[%s] fd=%d %s: %v\n", entry.Level, entry.FD, entry.Message, entry.Err)
		} else {
			fmt.Fprintf(l.Out, "[%s] fd=%d %s\n", entry.Level, entry.FD, entry.Message)
		}
		return
	}
	if entry.Err != nil {
		fmt.Fprintf(l.Out, "[%s] %s: %v\n", entry.Level, entry.Message, entry.Err)
		return
	}
	fmt.Fprintf(l.Out, "[%s] %s\n", entry.Level, entry.Message)
}

func logDebug(l Logger, fd int, msg string) {
	l.Log(LogEntry{Level: LevelDebug, Message: msg, FD: fd})
}

func logInfo(l Logger, fd int, msg string) {
	l.Log(LogEntry{Level: LevelInfo, Message: msg, FD: fd})
}

func logWarn(l Logger, fd int, msg string, err error) {
	l.Log(LogEntry{Level: LevelWarn, Message: msg, FD: fd, Err: err})
}

func logError(l Logger, fd int, msg string, err error) {
	l.Log(LogEntry{Level: LevelError, Message: msg, FD: fd, Err: err})
}
