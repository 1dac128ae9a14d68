package ports

import (
	"fmt"
	"strings"
)

// LogLevel is the minimum severity a Logger emits.
type LogLevel int

const (
	// LevelDebug is for per-frame pipeline details (rate changes, drops, evictions).
	LevelDebug LogLevel = iota
	// LevelInfo is for run-level progress.
	LevelInfo
	// LevelWarn is for soft codec failures that do not stop the run.
	LevelWarn
	// LevelError is for failures that abort the run.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLogLevel accepts a level name, case-insensitively. "warning" is an
// alias for warn.
func ParseLogLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return LevelWarn, nil
	}
	for i, name := range levelNames {
		if s == name {
			return LogLevel(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger abstracts logging with translatable message keys.
type Logger interface {
	// Debug logs a message about internal pipeline processing.
	// msg is a format string that doubles as the translation key.
	Debug(msg string, args ...interface{})

	// Info logs run-level progress.
	Info(msg string, args ...interface{})

	// Warn logs a recoverable problem.
	Warn(msg string, args ...interface{})

	// Error logs a problem that stops the run.
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the component name.
	WithComponent(component string) Logger
}
