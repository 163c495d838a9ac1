// Package logger configures structured logging for the policy and
// invocation core, with redaction of secret-looking values before they
// reach a log line.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human-readable console format
	Writer io.Writer
}

// Setup configures the global zerolog logger. The writer is wrapped with
// the default redactor so signatures and command lines never leak secrets.
func Setup(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var writer io.Writer = cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(defaultRedactor.Wrap(writer)).
		Level(level).
		With().
		Timestamp().
		Logger()
}
