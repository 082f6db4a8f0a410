package config

import (
	"io"
	"log/slog"
)

// Logger builds the process logger and installs it as the slog default.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}

	var h slog.Handler
	if c.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h).With("service", "dailymaze")
	slog.SetDefault(logger)
	return logger
}
