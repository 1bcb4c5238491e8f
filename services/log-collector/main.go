package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/logging"
	"github.com/HorusvsSet08/EspHorusWeb3/internal/mqttclient"
)

func main() {
	// 1. Logger before config. stdout only: mirroring the collector's own
	// logs would feed them back into itself.
	logger := logging.New(os.Getenv("LOG_LEVEL"), nil)
	cfg := LoadConfig()
	logger.Info("starting log collector", "dir", cfg.LogDir, "topic", cfg.LogTopic)

	// 2. Log directory (created if missing).
	collector, err := NewCollector(cfg.LogDir, logger)
	if err != nil {
		logger.Error("cannot create log directory", "error", err)
		os.Exit(1)
	}

	// 3. MQTT: resubscribe to logs/# on every (re)connect.
	opts := mqttclient.DefaultOptions()
	opts.BrokerURL = cfg.MQTTBroker
	opts.ClientID = cfg.MQTTClientID

	client, err := mqttclient.New(opts, mqttclient.Handlers{
		OnConnect: func(c *mqttclient.Client) {
			c.Subscribe(cfg.LogTopic, func(err error) {
				if err != nil {
					logger.Error("subscribe failed", "topic", cfg.LogTopic, "error", err)
					return
				}
				logger.Info("listening for logs", "topic", cfg.LogTopic)
			})
		},
		OnMessage: collector.HandleMessage,
		OnConnectionLost: func(err error) {
			logger.Warn("mqtt connection lost", "error", err)
		},
	})
	if err != nil {
		logger.Error("invalid mqtt options", "error", err)
		os.Exit(1)
	}

	// 4. Connect in the background; paho keeps retrying.
	connected := client.Connect()
	go func() {
		if err := <-connected; err != nil {
			logger.Error("mqtt connection failed", "error", err)
		}
	}()
	defer client.Close()

	// 5. Wait for SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
}
