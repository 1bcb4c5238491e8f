package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/HorusvsSet08/EspHorusWeb3/internal/telemetry"
)

var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrUnknownTopic = errors.New("topic not in channel table")
	ErrNotNumeric   = errors.New("payload is not a number")
)

// Reading is one accepted station value.
type Reading struct {
	Time    time.Time
	Channel string  // registry key, e.g. "temp"
	Raw     string  // trimmed payload as sent by the station
	Value   float64 // Raw parsed as a float
}

// parseReading applies the dashboard's rules (trim, skip empty, skip
// unknown topics) and additionally requires a numeric payload.
func parseReading(reg *telemetry.Registry, topic string, payload []byte, now time.Time) (Reading, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return Reading{}, ErrEmptyPayload
	}

	ch, ok := reg.Resolve(topic)
	if !ok {
		return Reading{}, ErrUnknownTopic
	}

	// ParseFloat accepts "NaN" and "Inf"; neither is a reading and JSON
	// cannot carry them to the history chart.
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Reading{}, fmt.Errorf("%w: %q on %s", ErrNotNumeric, raw, topic)
	}

	return Reading{Time: now.UTC(), Channel: ch.Key, Raw: raw, Value: v}, nil
}
