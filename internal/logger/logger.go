// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). The logger is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// ParseLevel maps the CLI switches to a level. quiet wins over verbose.
func ParseLevel(verbose, quiet bool) Level {
	switch {
	case quiet:
		return LevelOff
	case verbose:
		return LevelVerbose
	default:
		return LevelNormal
	}
}

// state is shared between a logger and the children created by Named so
// that SetLevel on the root affects every component.
type state struct {
	mu    sync.RWMutex
	level Level
	out   io.Writer
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	st     *state
	prefix string
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	errLog *log.Logger
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return build(&state{level: level, out: out}, "")
}

func build(st *state, prefix string) *Logger {
	flags := log.Ltime
	tag := ""
	if prefix != "" {
		tag = prefix + ": "
	}
	return &Logger{
		st:     st,
		prefix: prefix,
		debug:  log.New(st.out, "[DBG] "+tag, flags|log.Lmsgprefix),
		info:   log.New(st.out, "[INF] "+tag, flags|log.Lmsgprefix),
		warn:   log.New(st.out, "[WRN] "+tag, flags|log.Lmsgprefix),
		errLog: log.New(st.out, "[ERR] "+tag, flags|log.Lmsgprefix),
	}
}

// Named returns a child logger that tags every line with component.
// Children share the parent's level.
func (l *Logger) Named(component string) *Logger {
	if l.prefix != "" {
		component = l.prefix + "/" + component
	}
	return build(l.st, component)
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.st.mu.Lock()
	defer l.st.mu.Unlock()
	l.st.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()
	return l.st.level
}

func (l *Logger) enabled(min Level) bool {
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()
	return l.st.level >= min
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	if l.enabled(LevelVerbose) {
		l.debug.Output(2, fmt.Sprintf(format, args...))
	}
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	if l.enabled(LevelNormal) {
		l.info.Output(2, fmt.Sprintf(format, args...))
	}
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	if l.enabled(LevelNormal) {
		l.warn.Output(2, fmt.Sprintf(format, args...))
	}
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	if l.enabled(LevelNormal) {
		l.errLog.Output(2, fmt.Sprintf(format, args...))
	}
}
