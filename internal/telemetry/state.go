package telemetry

import (
	"fmt"
	"sync"
	"time"
)

// Status is the transport connection status shown by the dashboard badge.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	Error
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{Disconnected, Connecting, Connected, Error} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("telemetry: unknown status %q", text)
}

// LiveState holds the process-wide connectivity and freshness state.
// Transport callbacks arrive on paho goroutines, so every access goes
// through mu.
type LiveState struct {
	mu          sync.Mutex
	lastMessage time.Time
	hasMessage  bool
	status      Status
}

// NewLiveState returns the startup state: never updated, disconnected.
func NewLiveState() *LiveState {
	return &LiveState{status: Disconnected}
}

func (s *LiveState) setStatus(st Status) (prev Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.status
	s.status = st
	return prev
}

// setStatusUnless sets st unless the current status is skip. It reports the
// previous status and whether st was applied.
func (s *LiveState) setStatusUnless(st, skip Status) (prev Status, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.status
	if prev == skip {
		return prev, false
	}
	s.status = st
	return prev, true
}

func (s *LiveState) touch(t time.Time) {
	s.mu.Lock()
	s.lastMessage = t
	s.hasMessage = true
	s.mu.Unlock()
}

// Status returns the current connection status.
func (s *LiveState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastMessage returns the time of the last accepted message, if any.
func (s *LiveState) LastMessage() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessage, s.hasMessage
}

func (s *LiveState) read() (Status, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.lastMessage, s.hasMessage
}

// Snapshot is a consistent read of LiveState for the presentation layer.
type Snapshot struct {
	Status      Status         `json:"status"`
	LastMessage *time.Time     `json:"last_message"`
	Staleness   *time.Duration `json:"-"`
	StalenessMS *int64         `json:"staleness_ms"`
}
