package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/logging"
	"github.com/HorusvsSet08/EspHorusWeb3/internal/mqttclient"
	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

const serviceName = "data-persister"

func main() {
	// 1. Logger before config: LoadConfig reports bad values through slog,
	// and those warnings must be JSON as well.
	logger := logging.New(os.Getenv("LOG_LEVEL"), nil)
	cfg := LoadConfig()

	// 2. Same channel table as the dashboard.
	registry, err := telemetry.LoadRegistry(cfg.ChannelsFile, cfg.TopicPrefix)
	if err != nil {
		logger.Error("cannot load channel table", "error", err)
		os.Exit(1)
	}

	// 3. Storage (TimescaleDB + Valkey), retried while the databases start.
	var repo *Repository
	err = retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			r, err := NewRepository(ctx, cfg)
			if err != nil {
				return err
			}
			if cfg.EnsureSchema {
				if err := r.EnsureSchema(ctx); err != nil {
					r.Close()
					return err
				}
			}
			repo = r
			return nil
		},
		connectRetryOptions(cfg.ConnectAttempts, 2*time.Second, logger)...,
	)
	if err != nil {
		logger.Error("cannot connect to storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// 4. MQTT: subscribe to every station topic on each (re)connect.
	var persister *Persister

	opts := mqttclient.DefaultOptions()
	opts.BrokerURL = cfg.MQTTBroker
	opts.ClientID = cfg.MQTTClientID

	client, err := mqttclient.New(opts, mqttclient.Handlers{
		OnConnect: func(c *mqttclient.Client) {
			for _, topic := range registry.Topics() {
				c.Subscribe(topic, func(err error) {
					if err != nil {
						logger.Error("subscribe failed", "topic", topic, "error", err)
					}
				})
			}
			logger.Info("subscribed to station topics", "count", registry.Len())
		},
		OnMessage: func(topic string, payload []byte) {
			persister.HandleMessage(topic, payload)
		},
		OnConnectionLost: func(err error) {
			logger.Warn("mqtt connection lost", "error", err)
		},
	})
	if err != nil {
		logger.Error("invalid mqtt options", "error", err)
		os.Exit(1)
	}

	if cfg.MQTTLogs {
		logger = logging.New(cfg.LogLevel, logging.NewMqttLogWriter(client, serviceName))
	}
	persister = NewPersister(registry, repo, logger)

	logger.Info("starting data persister", "broker", cfg.MQTTBroker, "channels", registry.Len())

	// 5. Connect in the background; paho keeps retrying.
	connected := client.Connect()
	go func() {
		if err := <-connected; err != nil {
			logger.Error("mqtt connection failed", "error", err)
		}
	}()
	defer client.Close()

	// 6. Wait for SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
}

// connectRetryOptions retries a fixed delay apart. retry-go's default is
// exponential backoff with jitter.
func connectRetryOptions(attempts uint, delay time.Duration, logger *slog.Logger) []retry.Option {
	return []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("storage not ready, retrying", "attempt", n+1, "error", err)
		}),
	}
}
