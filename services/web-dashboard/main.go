package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/logging"
	"github.com/HorusvsSet08/EspHorusWeb3/internal/mqttclient"
	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

const serviceName = "web-dashboard"

func main() {
	// 1. Logger before config: LoadConfig reports bad values through slog,
	// and those warnings must be JSON as well.
	logger := logging.New(os.Getenv("LOG_LEVEL"), nil)
	cfg := LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Channel table: built-in horus table or CHANNELS_FILE.
	registry, err := telemetry.LoadRegistry(cfg.ChannelsFile, cfg.TopicPrefix)
	if err != nil {
		logger.Error("cannot load channel table", "file", cfg.ChannelsFile, "error", err)
		os.Exit(1)
	}

	var (
		board  *Board
		mapper *telemetry.Mapper
	)

	// 3. MQTT client. Handlers only fire after Connect, by which time
	// mapper is set.
	client, err := mqttclient.New(cfg.MQTTOptions(), mqttclient.Handlers{
		OnConnect: func(c *mqttclient.Client) {
			mapper.OnConnect(c)
		},
		OnMessage: func(topic string, payload []byte) {
			mapper.OnMessage(topic, payload)
		},
		OnConnectionLost: func(err error) {
			logger.Warn("mqtt connection lost", "error", err)
			mapper.OnConnectionLost()
		},
		OnReconnecting: func() {
			mapper.OnReconnect()
		},
		OnConnectAttempt: func(broker *url.URL) {
			logger.Debug("connecting to broker", "broker", broker.Redacted())
			mapper.OnReconnect()
		},
	})
	if err != nil {
		logger.Error("invalid mqtt options", "error", err)
		os.Exit(1)
	}

	// 4. From here on every log line is also published to logs/web-dashboard.
	if cfg.MQTTLogs {
		logger = logging.New(cfg.LogLevel, logging.NewMqttLogWriter(client, serviceName))
	}

	// 5. Display side: panels on the page, the push hub and the board that
	// the mapper writes into.
	panels := cfg.Panels
	if len(panels) == 0 {
		panels = registry.Targets()
	}

	hub := NewHub(logger, func() []Frame {
		values := board.Snapshot()
		frames := make([]Frame, 0, len(values)+1)
		for _, target := range board.Targets() {
			if text, ok := values[target]; ok {
				frames = append(frames, valueFrame(target, text))
			}
		}
		return append(frames, statusFrame(mapper.Snapshot()))
	})
	board = NewBoard(panels, hub)
	mapper = telemetry.NewMapper(registry, board, logger)

	for _, ch := range telemetry.MissingTargets(registry, board.Has) {
		logger.Warn("channel has no panel, its values will not be shown", "key", ch.Key, "target", ch.TargetID)
	}
	if cfg.StrictPanels {
		if err := telemetry.ValidateTargets(registry, board.Has); err != nil {
			logger.Error("panel layout does not cover the channel table", "error", err)
			os.Exit(1)
		}
	}

	// 6. Collaborators: theme store and, optionally, home-api for seeding
	// and history.
	themes := newThemeStore(ctx, cfg, logger)

	var api *APIClient
	if cfg.APIURL != "" {
		api = NewAPIClient(cfg.APIURL)
		seedBoard(ctx, api, board, logger)
	}

	logger.Info("starting web dashboard",
		"port", cfg.HTTPPort,
		"broker", cfg.MQTTBroker,
		"channels", registry.Len(),
		"panels", len(panels),
		"api_url", cfg.APIURL,
	)

	// 7. Background work, then the broker connection. Connect does not
	// block; paho retries every reconnect period.
	go hub.Run(ctx)
	go broadcastStatus(ctx, hub, mapper)

	connected := client.Connect()
	go func() {
		if err := <-connected; err != nil {
			logger.Error("initial mqtt connect failed, retrying in background", "error", err)
		}
	}()

	// 8. HTTP server.
	handler, err := NewWebHandler(mapper, board, hub, themes, api, logger)
	if err != nil {
		logger.Error("cannot parse templates", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	// 9. Graceful shutdown: HTTP first, then the broker.
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	client.Close()
	mapper.OnDisconnectOrError(telemetry.KindClosed)
}

// newThemeStore uses Valkey when it is configured and reachable.
func newThemeStore(ctx context.Context, cfg Config, logger *slog.Logger) ThemeStore {
	if cfg.ValkeyAddr == "" {
		return &MemoryThemeStore{}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.ValkeyAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("valkey unreachable, theme kept in memory", "addr", cfg.ValkeyAddr, "error", err)
		rdb.Close()
		return &MemoryThemeStore{}
	}
	return NewRedisThemeStore(rdb)
}

// seedBoard fills the panels with the last values home-api knows about, so
// a fresh page is not empty until the station reports again.
func seedBoard(ctx context.Context, api *APIClient, board *Board, logger *slog.Logger) {
	seedCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	channels, err := api.GetChannels(seedCtx)
	if err != nil {
		logger.Warn("cannot seed panels from home-api", "error", err)
		return
	}
	n := board.Seed(seedValues(channels))
	logger.Info("panels seeded from home-api", "values", n)
}

// broadcastStatus pushes the connection status once per second; the page
// derives "last updated N s ago" from it.
func broadcastStatus(ctx context.Context, hub *Hub, mapper *telemetry.Mapper) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hub.BroadcastStatus(mapper.Snapshot())
		}
	}
}
