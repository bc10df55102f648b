// Package logger provides logging functionality for the Kafka server
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Level defines the severity level of the log
type Level int

const (
	// DEBUG level logs detailed information for debugging
	DEBUG Level = iota
	// INFO level logs informational messages
	INFO
	// WARN level logs recoverable problems
	WARN
	// ERROR level logs error messages
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var zerologLevels = map[Level]zerolog.Level{
	DEBUG: zerolog.DebugLevel,
	INFO:  zerolog.InfoLevel,
	WARN:  zerolog.WarnLevel,
	ERROR: zerolog.ErrorLevel,
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name such as "info" or "WARN"
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	if strings.EqualFold(s, "warning") {
		return WARN, nil
	}
	return INFO, fmt.Errorf("invalid log level %q", s)
}

// Options configures a Logger
type Options struct {
	Level  Level
	Output io.Writer
	// JSON emits one JSON object per line instead of console text
	JSON bool
}

// Logger writes levelled, printf-style messages
type Logger struct {
	minLevel Level
	zl       zerolog.Logger
}

// New creates a new console logger on stdout with the specified minimum level
func New(level Level) *Logger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions creates a logger from opts
func NewWithOptions(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05", NoColor: true}
	}
	zl := zerolog.New(out).Level(zerologLevels[opts.Level]).With().Timestamp().Logger()
	return &Logger{minLevel: opts.Level, zl: zl}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{minLevel: ERROR + 1, zl: zerolog.Nop()}
}

// With returns a child logger that attaches key=value to every message
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{minLevel: l.minLevel, zl: l.zl.With().Interface(key, value).Logger()}
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level Level) bool {
	return level >= l.minLevel
}

// Log logs a message with the specified level
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	l.zl.WithLevel(zerologLevels[level]).Msgf(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(ERROR, format, args...)
}
