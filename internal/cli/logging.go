package cli

import (
	"io"
	"log/slog"
)

// NewLogger returns a text logger on w. Debug enables debug records;
// otherwise only warnings and errors are written.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
