package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS weather_readings (
	time    TIMESTAMPTZ      NOT NULL,
	channel TEXT             NOT NULL,
	value   DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS weather_readings_channel_time_idx
	ON weather_readings (channel, time DESC);
`

// LastValueKey is the Valkey key holding the latest raw value of a channel.
// home-api reads the same key.
func LastValueKey(channel string) string {
	return "station:last:" + channel
}

// Repository writes readings to TimescaleDB (history) and Valkey (latest).
type Repository struct {
	pgPool *pgxpool.Pool
	redis  *redis.Client
	ttl    time.Duration
}

// NewRepository connects to both stores and pings them.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.ValkeyAddr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		rdb.Close()
		return nil, fmt.Errorf("valkey unreachable: %w", err)
	}

	return &Repository{pgPool: pool, redis: rdb, ttl: cfg.LastValueTTL}, nil
}

// EnsureSchema creates the readings table and its index if needed.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pgPool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *Repository) Close() {
	r.pgPool.Close()
	r.redis.Close()
}

// SaveReading inserts the reading into the history table, then overwrites
// the channel's latest value. Postgres is the source of truth; a Valkey
// failure is still reported.
func (r *Repository) SaveReading(ctx context.Context, rd Reading) error {
	const query = `INSERT INTO weather_readings (time, channel, value) VALUES ($1, $2, $3)`

	if _, err := r.pgPool.Exec(ctx, query, rd.Time, rd.Channel, rd.Value); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	if err := r.redis.Set(ctx, LastValueKey(rd.Channel), rd.Raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("update last value: %w", err)
	}
	return nil
}
