package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

// ReadingStore is the write side of the repository.
type ReadingStore interface {
	SaveReading(ctx context.Context, rd Reading) error
}

// Persister turns station messages into stored readings.
type Persister struct {
	registry *telemetry.Registry
	store    ReadingStore
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewPersister(reg *telemetry.Registry, store ReadingStore, logger *slog.Logger) *Persister {
	return &Persister{
		registry: reg,
		store:    store,
		logger:   logger,
		timeout:  5 * time.Second,
		now:      time.Now,
	}
}

// HandleMessage is the MQTT message callback. Errors are logged, never
// returned: one bad sample must not stop the subscription.
func (p *Persister) HandleMessage(topic string, payload []byte) {
	rd, err := parseReading(p.registry, topic, payload, p.now())
	switch {
	case errors.Is(err, ErrEmptyPayload), errors.Is(err, ErrUnknownTopic):
		p.logger.Debug("message skipped", "topic", topic, "reason", err)
		return
	case err != nil:
		p.logger.Warn("reading rejected", "topic", topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.SaveReading(ctx, rd); err != nil {
		p.logger.Error("cannot store reading", "channel", rd.Channel, "error", err)
		return
	}
	p.logger.Debug("reading stored", "channel", rd.Channel, "value", rd.Value)
}
