package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LogLevelSilent disables all logging
	LogLevelSilent LogLevel = iota
	// LogLevelError shows only errors
	LogLevelError
	// LogLevelWarn shows warnings and errors
	LogLevelWarn
	// LogLevelInfo shows info, warnings, and errors (verbose mode)
	LogLevelInfo
	// LogLevelDebug shows all logs including per-entry detail
	LogLevelDebug
)

var levelNames = map[LogLevel]string{
	LogLevelSilent: "SILENT",
	LogLevelError:  "ERROR",
	LogLevelWarn:   "WARN",
	LogLevelInfo:   "INFO",
	LogLevelDebug:  "DEBUG",
}

// Logger provides levelled logging
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
}

var defaultLogger = &Logger{
	level:  LogLevelError,
	output: os.Stderr,
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
}

// GetLogLevel returns the current log level
func GetLogLevel() LogLevel {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.level
}

// SetOutput redirects log output and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	prev := defaultLogger.output
	defaultLogger.output = w
	return prev
}

// ParseLevel maps a configuration string such as "info" to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent", "off", "none":
		return LogLevelSilent, nil
	case "", "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelError, fmt.Errorf("unknown log level %q", name)
	}
}

// log writes a log message if the level is enabled. A non-empty scope is
// printed between the level and the message.
func (l *Logger) log(level LogLevel, scope string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	levelName := levelNames[level]
	message := fmt.Sprintf(format, args...)

	if scope == "" {
		fmt.Fprintf(l.output, "[%s] %s: %s\n", timestamp, levelName, message)
		return
	}
	fmt.Fprintf(l.output, "[%s] %s %s: %s\n", timestamp, levelName, scope, message)
}

// Scope logs through the package logger on behalf of one stage of the
// pipeline, such as "write" or "import".
type Scope struct {
	name string
}

// Named returns the Scope for name.
func Named(name string) Scope {
	return Scope{name: name}
}

func (s Scope) Debug(format string, args ...interface{}) {
	defaultLogger.log(LogLevelDebug, s.name, format, args...)
}

func (s Scope) Info(format string, args ...interface{}) {
	defaultLogger.log(LogLevelInfo, s.name, format, args...)
}

func (s Scope) Warn(format string, args ...interface{}) {
	defaultLogger.log(LogLevelWarn, s.name, format, args...)
}

func (s Scope) Error(format string, args ...interface{}) {
	defaultLogger.log(LogLevelError, s.name, format, args...)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LogLevelDebug, "", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	defaultLogger.log(LogLevelInfo, "", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LogLevelWarn, "", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	defaultLogger.log(LogLevelError, "", format, args...)
}
