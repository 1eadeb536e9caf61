package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Instrument installs the process-wide logger. out should be stderr: on the
// stdio transport stdout carries protocol traffic only.
func Instrument(level slog.Level, logFormat string, out io.Writer) error {
	handler, err := newHandler(level, logFormat, out)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

// newHandler creates a handler for human-readable or structured logs.
func newHandler(level slog.Level, logFormat string, out io.Writer) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}
