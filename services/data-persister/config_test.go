package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/logging"
)

func TestLoadConfigWarningsAreJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	// Same order as main: logger from LOG_LEVEL first, then the config.
	var buf bytes.Buffer
	logging.New("warn", &buf)
	t.Setenv("CONNECT_ATTEMPTS", "many")

	LoadConfig()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("config warning is not a JSON log line: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" || entry["key"] != "CONNECT_ATTEMPTS" || entry["value"] != "many" {
		t.Errorf("warning = %v", entry)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.ConnectAttempts != 10 {
		t.Errorf("ConnectAttempts = %d", cfg.ConnectAttempts)
	}
	if !cfg.EnsureSchema || !cfg.MQTTLogs {
		t.Errorf("EnsureSchema=%v MQTTLogs=%v", cfg.EnsureSchema, cfg.MQTTLogs)
	}
}
