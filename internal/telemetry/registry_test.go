package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatValueSuffixes(t *testing.T) {
	tests := []struct {
		key, raw, want string
	}{
		{"temp", "23.5", "23.5 °C"},
		{"press", "23.5", "23.5 hPa"},
		{"windSpeed", "23.5", "23.5 km/h"},
		{"windDir", "23.5", "23.5 °"},
		{"gas", "23.5", "23.5 kΩ"},
		{"lluvia", "23.5", "23.5 mm"},
		{"hum", "55", "55"},
		{"alt", "55", "55"},
		{"pm25", "55", "55"},
		{"pm10", "55", "55"},
	}

	for _, tt := range tests {
		ch := NewChannel(tt.key, "t/"+tt.key)
		if got := FormatValue(ch, tt.raw); got != tt.want {
			t.Errorf("FormatValue(%s, %q) = %q, want %q", tt.key, tt.raw, got, tt.want)
		}
	}
}

func TestDefaultChannels(t *testing.T) {
	want := map[string]struct{ topic, target string }{
		"temp":      {"horus/vvb/temperatura", "temp"},
		"hum":       {"horus/vvb/humedad", "hum"},
		"press":     {"horus/vvb/presion", "press"},
		"alt":       {"horus/vvb/altitud", "alt"},
		"pm25":      {"horus/vvb/pm25", "pm25"},
		"pm10":      {"horus/vvb/pm10", "pm10"},
		"windSpeed": {"horus/vvb/wind_speed", "wind"},
		"windDir":   {"horus/vvb/wind_direction", "windDir"},
		"gas":       {"horus/vvb/gas", "gas"},
		"lluvia":    {"horus/vvb/lluvia", "lluvia"},
	}

	channels := DefaultChannels("")
	if len(channels) != len(want) {
		t.Fatalf("got %d channels, want %d", len(channels), len(want))
	}
	for _, ch := range channels {
		w, ok := want[ch.Key]
		if !ok {
			t.Errorf("unexpected channel %q", ch.Key)
			continue
		}
		if ch.Topic != w.topic || ch.TargetID != w.target {
			t.Errorf("%s = (%q, %q), want (%q, %q)", ch.Key, ch.Topic, ch.TargetID, w.topic, w.target)
		}
	}

	custom := DefaultChannels("lab/station2/")
	if custom[0].Topic != "lab/station2/temperatura" {
		t.Errorf("custom prefix topic = %q", custom[0].Topic)
	}
}

func TestResolveIsInjective(t *testing.T) {
	reg, err := NewRegistry(DefaultChannels(""))
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for _, ch := range reg.Channels() {
		got, ok := reg.Resolve(ch.Topic)
		if !ok {
			t.Fatalf("Resolve(%q) not found", ch.Topic)
		}
		if got != ch {
			t.Errorf("Resolve(%q) = %+v, want %+v", ch.Topic, got, ch)
		}
		if seen[got.Key] {
			t.Errorf("key %q resolved twice", got.Key)
		}
		seen[got.Key] = true
	}

	for _, topic := range []string{"", "horus", "horus/vvb/#", "horus/vvb/temp", "horus/vvb/wind"} {
		if _, ok := reg.Resolve(topic); ok {
			t.Errorf("Resolve(%q) found a channel", topic)
		}
	}
}

func TestNewRegistryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		defs []Channel
		want error
	}{
		{
			name: "duplicate topic",
			defs: []Channel{NewChannel("temp", "a/b"), NewChannel("hum", "a/b")},
			want: ErrDuplicateTopic,
		},
		{
			name: "duplicate key",
			defs: []Channel{NewChannel("temp", "a/b"), NewChannel("temp", "a/c")},
			want: ErrDuplicateKey,
		},
		{
			name: "empty topic",
			defs: []Channel{NewChannel("temp", "")},
			want: ErrInvalidChannel,
		},
		{
			name: "wildcard topic",
			defs: []Channel{NewChannel("temp", "a/#")},
			want: ErrInvalidChannel,
		},
		{
			name: "empty key",
			defs: []Channel{{Topic: "a/b", TargetID: "x"}},
			want: ErrInvalidChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.defs); !errors.Is(err, tt.want) {
				t.Errorf("NewRegistry = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegistryIsImmutable(t *testing.T) {
	reg, err := NewRegistry(DefaultChannels(""))
	if err != nil {
		t.Fatal(err)
	}

	chans := reg.Channels()
	chans[0].Topic = "mutated"

	if _, ok := reg.Resolve("mutated"); ok {
		t.Error("mutating Channels() result changed the registry")
	}
	if reg.Channels()[0].Topic != "horus/vvb/temperatura" {
		t.Error("registry order or content changed")
	}
}

func TestDecodeChannels(t *testing.T) {
	src := `
prefix: lab/roof
channels:
  - key: temp
    topic: temperatura
  - key: windSpeed
    topic: other/wind
  - key: uv
    topic: uv
    target: uvIndex
    suffix: " UVI"
  - key: hum
    topic: humedad
    suffix: " %"
`
	defs, err := DecodeChannels(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeChannels: %v", err)
	}

	want := []Channel{
		{Key: "temp", Topic: "lab/roof/temperatura", TargetID: "temp", Suffix: " °C"},
		{Key: "windSpeed", Topic: "other/wind", TargetID: "wind", Suffix: " km/h"},
		{Key: "uv", Topic: "lab/roof/uv", TargetID: "uvIndex", Suffix: " UVI"},
		{Key: "hum", Topic: "lab/roof/humedad", TargetID: "hum", Suffix: " %"},
	}
	if len(defs) != len(want) {
		t.Fatalf("got %d channels, want %d", len(defs), len(want))
	}
	for i := range want {
		if defs[i] != want[i] {
			t.Errorf("channel %d = %+v, want %+v", i, defs[i], want[i])
		}
	}
}

func TestDecodeChannelsRejectsUnknownFields(t *testing.T) {
	_, err := DecodeChannels(strings.NewReader("channels:\n  - key: temp\n    topik: x\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry("", "")
	if err != nil {
		t.Fatalf("LoadRegistry default: %v", err)
	}
	if reg.Len() != 10 {
		t.Errorf("default registry has %d channels, want 10", reg.Len())
	}

	path := filepath.Join(t.TempDir(), "channels.yaml")
	dup := "channels:\n  - key: a\n    topic: x/y\n  - key: b\n    topic: x/y\n"
	if err := os.WriteFile(path, []byte(dup), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistry(path, ""); !errors.Is(err, ErrDuplicateTopic) {
		t.Errorf("LoadRegistry duplicate = %v, want ErrDuplicateTopic", err)
	}

	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Error("LoadRegistry of a missing file succeeded")
	}
}
