package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/mqttclient"
)

// Config holds everything the dashboard needs at runtime. Values come from
// the environment so the same image runs on a laptop and in compose.
type Config struct {
	HTTPPort string

	// MQTT connection, same defaults as the station's browser client.
	MQTTBroker          string
	MQTTClientID        string
	MQTTCleanSession    bool
	MQTTConnectTimeout  time.Duration
	MQTTReconnectPeriod time.Duration
	MQTTProtocolVersion uint

	// Channel table: built-in horus table under TopicPrefix, or a YAML file.
	TopicPrefix  string
	ChannelsFile string

	// Panels lists the display targets present on the page. Empty means
	// every registry target. StrictPanels turns a missing target into a
	// startup failure instead of a warning.
	Panels       []string
	StrictPanels bool

	// APIURL of home-api, used to seed values and for history charts.
	// Empty disables both.
	APIURL string

	// ValkeyAddr stores the theme preference. Empty keeps it in memory.
	ValkeyAddr string

	LogLevel string
	MQTTLogs bool
}

// LoadConfig reads the environment, falling back to defaults.
func LoadConfig() Config {
	return Config{
		HTTPPort: getEnv("HTTP_PORT", "3000"),

		MQTTBroker:          getEnv("MQTT_BROKER", "ws://broker.hivemq.com:8000/mqtt"),
		MQTTClientID:        getEnv("MQTT_CLIENT_ID", ""),
		MQTTCleanSession:    getEnvBool("MQTT_CLEAN_SESSION", true),
		MQTTConnectTimeout:  getEnvDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second),
		MQTTReconnectPeriod: getEnvDuration("MQTT_RECONNECT_PERIOD", 3*time.Second),
		MQTTProtocolVersion: uint(getEnvInt("MQTT_PROTOCOL_VERSION", 4)),

		TopicPrefix:  getEnv("TOPIC_PREFIX", "horus/vvb"),
		ChannelsFile: getEnv("CHANNELS_FILE", ""),

		Panels:       splitList(getEnv("PANELS", "")),
		StrictPanels: getEnvBool("STRICT_PANELS", false),

		APIURL:     strings.TrimSuffix(getEnv("API_URL", ""), "/"),
		ValkeyAddr: getEnv("VALKEY_ADDR", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		MQTTLogs: getEnvBool("MQTT_LOGS", false),
	}
}

// MQTTOptions converts the config into transport options, generating a
// client id when none is configured.
func (c Config) MQTTOptions() mqttclient.Options {
	opts := mqttclient.DefaultOptions()
	opts.BrokerURL = c.MQTTBroker
	opts.ClientID = c.MQTTClientID
	if opts.ClientID == "" {
		opts.ClientID = generateClientID()
	}
	opts.CleanSession = c.MQTTCleanSession
	opts.ConnectTimeout = c.MQTTConnectTimeout
	opts.ReconnectPeriod = c.MQTTReconnectPeriod
	opts.ProtocolVersion = c.MQTTProtocolVersion
	return opts
}

// generateClientID returns "webClient_" followed by 8 random hex chars.
func generateClientID() string {
	return "webClient_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

// getEnvDuration accepts Go durations ("3s") or plain milliseconds ("3000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
