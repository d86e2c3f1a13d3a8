package config

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger for the configured level and format.
// Unknown levels fall back to info.
func (c LogConfig) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if c.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "evservice").Logger()
}
