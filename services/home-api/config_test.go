package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/logging"
)

func TestLoadConfigWarningsAreJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	// Same order as main: logger from LOG_LEVEL first, then the config.
	var buf bytes.Buffer
	logging.New("warn", &buf)
	t.Setenv("MAX_HISTORY_RANGE", "forever")

	LoadConfig()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("config warning is not a JSON log line: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" || entry["key"] != "MAX_HISTORY_RANGE" || entry["value"] != "forever" {
		t.Errorf("warning = %v", entry)
	}
}

func TestLoadConfigRejectsNonPositive(t *testing.T) {
	t.Setenv("MAX_HISTORY_RANGE", "-1h")
	t.Setenv("CONNECT_ATTEMPTS", "0")

	cfg := LoadConfig()

	if cfg.MaxRange != 31*24*time.Hour {
		t.Errorf("MaxRange = %s", cfg.MaxRange)
	}
	if cfg.ConnectAttempts != 10 {
		t.Errorf("ConnectAttempts = %d", cfg.ConnectAttempts)
	}
}
