// Package logging provides structured logging for the service.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup creates a configured slog.Logger tagging every record with the
// service name and environment.
// format: "json" or "text" (defaults to "json" if empty)
// If w is nil, writes to os.Stderr.
func Setup(service, env, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if env != "production" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
	)
}
