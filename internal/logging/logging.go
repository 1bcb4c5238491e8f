// Package logging sets up the services' structured JSON logger and the
// optional mirror of every log line to MQTT.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger writing to stdout and, when mirror is non-nil,
// to mirror as well. The logger is also installed as slog's default.
func New(level string, mirror io.Writer) *slog.Logger {
	var w io.Writer = os.Stdout
	if mirror != nil {
		w = io.MultiWriter(os.Stdout, mirror)
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(logger)
	return logger
}
