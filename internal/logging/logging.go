// Package logging builds the zerolog loggers used across the bridge.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w. JSON output is one object per line;
// otherwise a plain console format is used. Debug enables per-connection
// detail.
func New(w io.Writer, json, debug bool) zerolog.Logger {
	out := w
	if !json {
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
		cw.FormatLevel = func(i any) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		}
		out = cw
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
