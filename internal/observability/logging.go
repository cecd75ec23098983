package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// NewLogger creates a structured JSON logger for the given component.
// Log level is controlled by FLOW_LOG_LEVEL (debug, info, warn, error);
// defaults to info.
func NewLogger(component string) zerolog.Logger {
	return NewLoggerWithLevel(component, os.Getenv("FLOW_LOG_LEVEL"))
}

// NewLoggerWithLevel creates a logger with an explicit level string.
func NewLoggerWithLevel(component, level string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(parseLogLevel(level)).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func parseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
