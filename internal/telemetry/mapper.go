package telemetry

import (
	"log/slog"
	"strings"
	"time"
)

// Display is the write surface keyed by display target id. Write reports
// false when the target is not present on the page.
type Display interface {
	Write(targetID, text string) bool
}

// Subscriber issues one subscribe request per topic. done is called once
// with the outcome; it may run on another goroutine.
type Subscriber interface {
	Subscribe(topic string, done func(err error))
}

// DisconnectKind tells OnDisconnectOrError which status to record.
type DisconnectKind int

const (
	// KindClosed is an orderly close or the client going offline.
	KindClosed DisconnectKind = iota
	// KindError is a transport error or an unexpected connection loss.
	KindError
)

// Mapper routes inbound messages to display targets and tracks LiveState.
type Mapper struct {
	registry *Registry
	display  Display
	state    *LiveState
	logger   *slog.Logger
	now      func() time.Time
}

// Option tunes a Mapper.
type Option func(*Mapper)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// WithState lets the caller own the LiveState instance.
func WithState(s *LiveState) Option {
	return func(m *Mapper) { m.state = s }
}

// NewMapper wires a registry to a display. A nil logger means slog.Default().
func NewMapper(registry *Registry, display Display, logger *slog.Logger, opts ...Option) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{
		registry: registry,
		display:  display,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.state == nil {
		m.state = NewLiveState()
	}
	return m
}

// Registry returns the channel table the mapper routes against.
func (m *Mapper) Registry() *Registry { return m.registry }

// State returns the live state owned by this mapper.
func (m *Mapper) State() *LiveState { return m.state }

// OnMessage handles one inbound (topic, payload) pair. Empty payloads and
// unknown topics are dropped without side effects. A missing display target
// skips the write but still counts as an accepted message.
func (m *Mapper) OnMessage(topic string, payload []byte) {
	value := strings.TrimSpace(string(payload))
	if value == "" {
		return
	}

	ch, ok := m.registry.Resolve(topic)
	if !ok {
		return
	}

	text := FormatValue(ch, value)
	if !m.display.Write(ch.TargetID, text) {
		m.logger.Debug("display target not on page", "key", ch.Key, "target", ch.TargetID)
	}

	m.state.touch(m.now())
}

// OnConnect marks the transport connected and subscribes every channel
// topic. A failed subscribe is logged and the remaining topics still go out.
func (m *Mapper) OnConnect(sub Subscriber) {
	m.state.setStatus(Connected)
	m.logger.Info("mqtt connected, subscribing", "topics", m.registry.Len())

	for _, topic := range m.registry.Topics() {
		topic := topic
		sub.Subscribe(topic, func(err error) {
			if err != nil {
				m.logger.Error("subscribe failed", "topic", topic, "error", err)
				return
			}
			m.logger.Info("subscribed", "topic", topic)
		})
	}
}

// OnDisconnectOrError records the status for a close or an error event.
func (m *Mapper) OnDisconnectOrError(kind DisconnectKind) {
	st := Disconnected
	if kind == KindError {
		st = Error
	}
	if prev := m.state.setStatus(st); prev != st {
		m.logger.Warn("mqtt connection status changed", "from", prev, "to", st)
	}
}

// OnConnectionLost records an unexpected loss of the connection. paho
// reports the loss on its own goroutine while its reconnect loop is already
// running, so the two events race. A loss that arrives after the reconnect
// began is dropped and the status stays Connecting; either order ends there.
func (m *Mapper) OnConnectionLost() {
	prev, applied := m.state.setStatusUnless(Error, Connecting)
	if applied && prev != Error {
		m.logger.Warn("mqtt connection status changed", "from", prev, "to", Error)
	}
}

// OnReconnect records that the transport is trying to reconnect.
func (m *Mapper) OnReconnect() {
	if prev := m.state.setStatus(Connecting); prev != Connecting {
		m.logger.Info("mqtt reconnecting", "from", prev)
	}
}

// Staleness returns the time since the last accepted message. ok is false
// while nothing has been accepted yet.
func (m *Mapper) Staleness() (d time.Duration, ok bool) {
	last, ok := m.state.LastMessage()
	if !ok {
		return 0, false
	}
	return m.now().Sub(last), true
}

// Status returns the current connection status.
func (m *Mapper) Status() Status {
	return m.state.Status()
}

// Snapshot reads status, last message time and staleness together.
func (m *Mapper) Snapshot() Snapshot {
	st, last, ok := m.state.read()
	snap := Snapshot{Status: st}
	if ok {
		d := m.now().Sub(last)
		ms := d.Milliseconds()
		snap.LastMessage = &last
		snap.Staleness = &d
		snap.StalenessMS = &ms
	}
	return snap
}

// MissingTargets lists the channels whose display target is not present.
func MissingTargets(r *Registry, present func(targetID string) bool) []Channel {
	var missing []Channel
	for _, ch := range r.channels {
		if !present(ch.TargetID) {
			missing = append(missing, ch)
		}
	}
	return missing
}

// ValidateTargets fails on the first channel whose display target is not
// present. The error matches ErrMissingTarget.
func ValidateTargets(r *Registry, present func(targetID string) bool) error {
	if missing := MissingTargets(r, present); len(missing) > 0 {
		return &MissingTargetError{Key: missing[0].Key, TargetID: missing[0].TargetID}
	}
	return nil
}
