package main

import (
	"sync"
)

// ValueSink receives every accepted display write, e.g. the WebSocket hub.
type ValueSink interface {
	BroadcastValue(target, text string)
}

// Board is the server-side copy of the page's display targets. It
// implements telemetry.Display: writes to targets that are not on the
// page are refused.
type Board struct {
	mu      sync.RWMutex
	targets map[string]bool
	order   []string
	values  map[string]string
	sink    ValueSink
}

// NewBoard registers the given display targets. sink may be nil.
func NewBoard(targets []string, sink ValueSink) *Board {
	b := &Board{
		targets: make(map[string]bool, len(targets)),
		values:  make(map[string]string, len(targets)),
		sink:    sink,
	}
	for _, t := range targets {
		if b.targets[t] {
			continue
		}
		b.targets[t] = true
		b.order = append(b.order, t)
	}
	return b
}

// Has reports whether target is on the page.
func (b *Board) Has(target string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.targets[target]
}

// Write stores text for target and pushes it to the sink.
func (b *Board) Write(target, text string) bool {
	b.mu.Lock()
	if !b.targets[target] {
		b.mu.Unlock()
		return false
	}
	b.values[target] = text
	b.mu.Unlock()

	if b.sink != nil {
		b.sink.BroadcastValue(target, text)
	}
	return true
}

// Seed sets initial texts without pushing them. Existing values win, so a
// live message that arrived first is never overwritten by older data.
func (b *Board) Seed(values map[string]string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for target, text := range values {
		if !b.targets[target] || text == "" {
			continue
		}
		if _, ok := b.values[target]; ok {
			continue
		}
		b.values[target] = text
		n++
	}
	return n
}

// Snapshot returns the current text of every target that has one.
func (b *Board) Snapshot() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Targets returns the registered targets in registration order.
func (b *Board) Targets() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}
