package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/logging"
	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

func main() {
	// 1. Logger before config: LoadConfig reports bad values through slog,
	// and those warnings must be JSON as well.
	logger := logging.New(os.Getenv("LOG_LEVEL"), nil)
	cfg := LoadConfig()
	logger.Info("starting home api", "port", cfg.HTTPPort)

	// 2. Channel table, for keys, targets and suffixes.
	registry, err := telemetry.LoadRegistry(cfg.ChannelsFile, cfg.TopicPrefix)
	if err != nil {
		logger.Error("cannot load channel table", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Postgres pool and Valkey client; both must answer a ping.
	dbPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("invalid postgres url", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.ValkeyAddr,
	})
	err = retry.Do(
		func() error {
			if err := dbPool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("valkey: %w", err)
			}
			return nil
		},
		connectRetryOptions(cfg.ConnectAttempts, 2*time.Second, logger)...,
	)
	if err != nil {
		logger.Error("storage unreachable", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// 4. Wiring: store -> service -> handler.
	svc := NewService(registry, NewDBStore(dbPool, rdb), cfg.MaxRange)
	api := NewAPIHandler(svc, logger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	// 5. HTTP server behind the CORS middleware.
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           CorsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	// 6. Graceful shutdown.
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
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
