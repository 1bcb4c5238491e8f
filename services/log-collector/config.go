package main

import (
	"os"
)

// Config holds the log collector settings, read from the environment.
type Config struct {
	MQTTBroker   string
	MQTTClientID string

	// LogTopic is where services mirror their logs, see logging.TopicFor.
	LogTopic string

	// LogDir receives one <service>.log file per service.
	LogDir string

	LogLevel string
}

func LoadConfig() Config {
	return Config{
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://mqtt:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "log-collector"),
		LogTopic:     getEnv("LOG_TOPIC", "logs/#"),
		LogDir:       getEnv("LOG_DIR", "/var/log/horus"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
