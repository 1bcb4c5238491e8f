package main

import (
	"reflect"
	"sync"
	"testing"
)

type recordingSink struct {
	mu     sync.Mutex
	frames [][2]string
}

func (s *recordingSink) BroadcastValue(target, text string) {
	s.mu.Lock()
	s.frames = append(s.frames, [2]string{target, text})
	s.mu.Unlock()
}

func TestBoardWrite(t *testing.T) {
	sink := &recordingSink{}
	b := NewBoard([]string{"temp", "hum"}, sink)

	if !b.Write("temp", "21.3 °C") {
		t.Fatal("Write(temp) = false, want true")
	}
	if b.Write("wind", "12 km/h") {
		t.Error("Write(wind) = true for a target that is not on the page")
	}

	want := map[string]string{"temp": "21.3 °C"}
	if got := b.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot = %v, want %v", got, want)
	}
	if len(sink.frames) != 1 || sink.frames[0] != [2]string{"temp", "21.3 °C"} {
		t.Errorf("sink got %v", sink.frames)
	}
}

func TestBoardSeedKeepsLiveValues(t *testing.T) {
	sink := &recordingSink{}
	b := NewBoard([]string{"temp", "hum", "press"}, sink)
	b.Write("temp", "22 °C")

	n := b.Seed(map[string]string{
		"temp":  "18 °C",
		"hum":   "55",
		"press": "",
		"wind":  "3 km/h",
	})
	if n != 1 {
		t.Errorf("Seed = %d, want 1", n)
	}

	want := map[string]string{"temp": "22 °C", "hum": "55"}
	if got := b.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot = %v, want %v", got, want)
	}
	if len(sink.frames) != 1 {
		t.Errorf("Seed pushed %d frames to the sink, want none", len(sink.frames)-1)
	}
}

func TestBoardTargetsDeduplicated(t *testing.T) {
	b := NewBoard([]string{"temp", "hum", "temp"}, nil)
	if got := b.Targets(); !reflect.DeepEqual(got, []string{"temp", "hum"}) {
		t.Errorf("Targets = %v", got)
	}
	if !b.Has("hum") || b.Has("gas") {
		t.Error("Has reports the wrong membership")
	}
	// nil sink must not panic
	b.Write("hum", "40")
}
