// Package logging builds the engine's structured loggers on top of
// zerolog. The shape (New(cfg), WithComponent, a package-level
// Default()) follows the teacher's hand-rolled logger; the backend is a
// real structured-logging library instead of a bespoke JSON encoder.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how Default() and New() construct their logger.
type Config struct {
	Level      string // debug, info, warn, error
	Output     string // "stdout", "stderr", or a file path
	Component  string
	JSONFormat bool // false renders a human-readable console writer
}

// New builds a zerolog.Logger from cfg.
func New(cfg Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			out = f
		}
	}
	if !cfg.JSONFormat {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Component != "" {
		logger = logger.With().Str("component", cfg.Component).Logger()
	}
	return logger
}

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Default returns a process-wide fallback logger for code paths that were
// not handed one explicitly via constructor injection.
func Default() zerolog.Logger {
	once.Do(func() {
		defaultLogger = New(Config{Level: "info", Output: "stdout", Component: "engine", JSONFormat: true})
	})
	return defaultLogger
}

// WithComponent scopes the default logger to a named component.
func WithComponent(component string) zerolog.Logger {
	return Default().With().Str("component", component).Logger()
}
