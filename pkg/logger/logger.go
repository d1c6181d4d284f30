// Package logger wraps zerolog with the two knobs the rest of the service
// cares about: a level and whether to render human-readable output.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is a zerolog level name: "debug", "info", "warn", "error", etc.
	// An unrecognized or empty value falls back to "info".
	Level string
	// Pretty enables zerolog's human-readable console writer instead of
	// structured JSON. Intended for local development, not production.
	Pretty bool
}

// New builds a zerolog.Logger writing to stderr, timestamped, at the level
// named in cfg.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	// ParseLevel maps "" to NoLevel without an error; treat it like an
	// unrecognized value.
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stderr
	if cfg.Pretty {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
