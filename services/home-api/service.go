package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrInvalidRange   = errors.New("invalid range")
)

// Store is the storage the service reads from.
type Store interface {
	// LastValues returns the latest raw value per channel key; keys with
	// no value are absent from the map.
	LastValues(ctx context.Context, keys []string) (map[string]string, error)
	History(ctx context.Context, channel string, since time.Time) ([]HistoryPoint, error)
}

// Service combines the channel table with stored readings.
type Service struct {
	registry *telemetry.Registry
	store    Store
	maxRange time.Duration
	now      func() time.Time
}

func NewService(reg *telemetry.Registry, store Store, maxRange time.Duration) *Service {
	return &Service{registry: reg, store: store, maxRange: maxRange, now: time.Now}
}

// ListChannels returns every channel in table order with its latest value.
func (s *Service) ListChannels(ctx context.Context) ([]ChannelDTO, error) {
	channels := s.registry.Channels()

	keys := make([]string, len(channels))
	for i, ch := range channels {
		keys[i] = ch.Key
	}
	values, err := s.store.LastValues(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load last values: %w", err)
	}

	out := make([]ChannelDTO, 0, len(channels))
	for _, ch := range channels {
		dto := ChannelDTO{
			Key:    ch.Key,
			Topic:  ch.Topic,
			Target: ch.TargetID,
			Suffix: ch.Suffix,
		}
		if raw, ok := values[ch.Key]; ok {
			dto.Value = &raw
			dto.Display = telemetry.FormatValue(ch, raw)
		}
		out = append(out, dto)
	}
	return out, nil
}

// GetHistory returns the readings of one channel over the last rangeStr
// (a Go duration such as "1h" or "168h").
func (s *Service) GetHistory(ctx context.Context, key, rangeStr string) ([]HistoryPoint, error) {
	if _, ok := s.registry.Lookup(key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, key)
	}

	dur, err := s.parseRange(rangeStr)
	if err != nil {
		return nil, err
	}

	points, err := s.store.History(ctx, key, s.now().UTC().Add(-dur))
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", key, err)
	}
	return finitePoints(points), nil
}

// finitePoints drops NaN and ±Inf rows. Postgres stores them, JSON
// cannot encode them.
func finitePoints(points []HistoryPoint) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Service) parseRange(rangeStr string) (time.Duration, error) {
	dur, err := time.ParseDuration(rangeStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a duration such as 1h or 30m", ErrInvalidRange, rangeStr)
	}
	if dur <= 0 || (s.maxRange > 0 && dur > s.maxRange) {
		return 0, fmt.Errorf("%w: %s is outside (0, %s]", ErrInvalidRange, dur, s.maxRange)
	}
	return dur, nil
}
