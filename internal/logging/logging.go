// Package logging provides the harness's ambient structured logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global base logger. Call Init before using it.
var Logger zerolog.Logger

// Level is a coarse log level name, accepted from config/env.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init configures the global logger.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

// Init sets up the global logger. Console output uses the run_name/ident
// tagged format required by cell event logs; JSON output is used when
// the harness is run under a log aggregator.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	if cfg.JSON {
		Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the originating package.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRun returns a child logger tagged with the candidate run name.
func WithRun(runName string) zerolog.Logger {
	return Logger.With().Str("run_name", runName).Logger()
}

// WithCell returns a child logger tagged with run_name and instance ident,
// matching the "<run_name> <ident>" event-log prefix the runner emits.
func WithCell(runName, ident string) zerolog.Logger {
	return Logger.With().Str("run_name", runName).Str("ident", ident).Logger()
}
