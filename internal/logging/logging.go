// Package logging constructs the application logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a logger writing to w at the given level. Format "console"
// produces human-readable output; anything else emits JSON lines. Unknown
// levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Default is the stderr console logger used before configuration is loaded.
func Default() zerolog.Logger {
	return New(os.Stderr, "info", "console")
}
