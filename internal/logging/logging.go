// Package logging builds the process logger: a log/slog front end backed by
// charmbracelet/log for leveled, human-readable lines.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Prefix is printed before every log line.
const Prefix = "pm"

// New returns a slog.Logger writing to w at the given level
// (debug, info, warn or error). Unknown levels fall back to warn.
func New(w io.Writer, level string) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		Prefix:          Prefix,
	})
	return slog.New(handler)
}

// ParseLevel converts a level name into a charmbracelet/log level.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}
