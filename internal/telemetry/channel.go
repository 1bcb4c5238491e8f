// Package telemetry maps weather-station MQTT traffic onto display targets.
//
// A Registry holds the static channel table (key, topic, display target, unit
// suffix). A Mapper consumes transport events, formats accepted payloads and
// writes them to a Display, while tracking connection status and the time of
// the last accepted message.
package telemetry

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTopicPrefix is where the Horus station publishes its readings.
const DefaultTopicPrefix = "horus/vvb"

var (
	ErrInvalidChannel = errors.New("invalid channel definition")
	ErrDuplicateTopic = errors.New("duplicate channel topic")
	ErrDuplicateKey   = errors.New("duplicate channel key")
)

// Channel is one logical telemetry quantity bound to exactly one topic
// and one display target.
type Channel struct {
	Key      string `json:"key" yaml:"key"`
	Topic    string `json:"topic" yaml:"topic"`
	TargetID string `json:"target" yaml:"target"`
	Suffix   string `json:"suffix" yaml:"suffix"`
}

// unitSuffixes: the leading space is part of the literal.
var unitSuffixes = map[string]string{
	"temp":      " °C",
	"press":     " hPa",
	"windSpeed": " km/h",
	"windDir":   " °",
	"gas":       " kΩ",
	"lluvia":    " mm",
}

// UnitSuffix returns the formatting suffix for a channel key. Keys without
// a unit (hum, alt, pm25, pm10, anything unknown) get an empty suffix.
func UnitSuffix(key string) string {
	return unitSuffixes[key]
}

// DisplayTargetID returns the UI element id that renders a channel.
// windSpeed is rendered into "wind"; every other key renders into itself.
func DisplayTargetID(key string) string {
	if key == "windSpeed" {
		return "wind"
	}
	return key
}

// NewChannel builds a channel with the target id and suffix derived from key.
func NewChannel(key, topic string) Channel {
	return Channel{
		Key:      key,
		Topic:    topic,
		TargetID: DisplayTargetID(key),
		Suffix:   UnitSuffix(key),
	}
}

// defaultTopics keeps the station's channel order.
var defaultTopics = []struct{ key, leaf string }{
	{"temp", "temperatura"},
	{"hum", "humedad"},
	{"press", "presion"},
	{"alt", "altitud"},
	{"pm25", "pm25"},
	{"pm10", "pm10"},
	{"windSpeed", "wind_speed"},
	{"windDir", "wind_direction"},
	{"gas", "gas"},
	{"lluvia", "lluvia"},
}

// DefaultChannels returns the station's ten channels under the given topic
// prefix. An empty prefix falls back to DefaultTopicPrefix.
func DefaultChannels(prefix string) []Channel {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}

	channels := make([]Channel, 0, len(defaultTopics))
	for _, t := range defaultTopics {
		channels = append(channels, NewChannel(t.key, prefix+"/"+t.leaf))
	}
	return channels
}

// FormatValue appends the channel's unit suffix to an already trimmed raw
// value. No separator is added beyond what the suffix carries.
func FormatValue(ch Channel, raw string) string {
	return raw + ch.Suffix
}

func (c Channel) validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("%w: empty key (topic %q)", ErrInvalidChannel, c.Topic)
	}
	if strings.TrimSpace(c.Topic) == "" {
		return fmt.Errorf("%w: empty topic for key %q", ErrInvalidChannel, c.Key)
	}
	if strings.ContainsAny(c.Topic, "+#") {
		return fmt.Errorf("%w: wildcard topic %q for key %q", ErrInvalidChannel, c.Topic, c.Key)
	}
	if c.TargetID == "" {
		return fmt.Errorf("%w: empty display target for key %q", ErrInvalidChannel, c.Key)
	}
	return nil
}
