package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var errBadTopic = errors.New("topic is not logs/<service>[/...]")

// serviceFromTopic extracts the service name from "logs/<service>/...".
// Names are limited to a safe character set so a topic can never point
// outside the log directory.
func serviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[0] != "logs" {
		return "", errBadTopic
	}

	name := parts[1]
	if name == "" || name == "." || name == ".." {
		return "", errBadTopic
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return "", errBadTopic
		}
	}
	return name, nil
}

// Collector appends mirrored log lines to per-service files.
type Collector struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex // serializes appends
}

func NewCollector(dir string, logger *slog.Logger) (*Collector, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Collector{dir: dir, logger: logger}, nil
}

// HandleMessage is the MQTT message callback.
func (c *Collector) HandleMessage(topic string, payload []byte) {
	service, err := serviceFromTopic(topic)
	if err != nil {
		c.logger.Warn("dropping log message", "topic", topic, "error", err)
		return
	}

	if err := c.appendLog(service, payload); err != nil {
		c.logger.Error("cannot write log file", "service", service, "error", err)
	}
}

// appendLog opens, writes and closes the file for every line so external
// rotation (logrotate with copytruncate or move) keeps working.
func (c *Collector) appendLog(service string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	filename := filepath.Join(c.dir, service+".log")
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
