package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// lastValueKey must match the key data-persister writes.
func lastValueKey(channel string) string {
	return "station:last:" + channel
}

// DBStore reads history from TimescaleDB and latest values from Valkey.
type DBStore struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewDBStore(db *pgxpool.Pool, rdb *redis.Client) *DBStore {
	return &DBStore{db: db, redis: rdb}
}

// LastValues fetches every key in one MGET round trip.
func (s *DBStore) LastValues(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = lastValueKey(k)
	}

	vals, err := s.redis.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for i, v := range vals {
		// Missing keys come back as nil.
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

func (s *DBStore) History(ctx context.Context, channel string, since time.Time) ([]HistoryPoint, error) {
	const query = `
		SELECT time, value
		FROM weather_readings
		WHERE channel = $1 AND time >= $2
		ORDER BY time ASC
	`

	rows, err := s.db.Query(ctx, query, channel, since)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryPoint, error) {
		var p HistoryPoint
		err := row.Scan(&p.Time, &p.Value)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return points, nil
}
