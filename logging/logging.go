// Package logging configures the zerolog loggers used across the library.
// Every component takes a zerolog.Logger in its Config and defaults to a
// no-op logger, so this package is convenience for applications, not a
// requirement.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity: "debug", "info", "warn" or "error".
	// Default: "info".
	Level string

	// Console enables human-readable output instead of JSON.
	Console bool

	// Output destination. Default: os.Stderr.
	Output io.Writer
}

// New builds a logger from the configuration. Unknown levels fall back to
// info rather than failing, so a typo in an environment variable does not
// silence a process.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out}
	}

	level := parseLevel(cfg.Level)
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// FromEnv builds a logger configured by STREAMLINE_LOG_LEVEL and
// STREAMLINE_LOG_CONSOLE.
func FromEnv() zerolog.Logger {
	return New(Config{
		Level:   os.Getenv("STREAMLINE_LOG_LEVEL"),
		Console: os.Getenv("STREAMLINE_LOG_CONSOLE") == "true",
	})
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
