package misc

import (
	"io"
	"log/slog"
)

// NewLogger maps the verbose level onto slog levels: 0 warns, 1 informs and 2
// or more debugs.
func NewLogger(w io.Writer, verbose int, json bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ConfigureLogger installs the logger as the process default and returns it.
func ConfigureLogger(w io.Writer, verbose int, json bool) *slog.Logger {
	logger := NewLogger(w, verbose, json)
	slog.SetDefault(logger)
	return logger
}
