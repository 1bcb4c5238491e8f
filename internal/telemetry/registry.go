package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry is the ordered, immutable channel table plus its reverse index
// from topic to channel. Build it once at startup, before subscribing.
type Registry struct {
	channels []Channel
	byTopic  map[string]Channel
	byKey    map[string]Channel
}

// NewRegistry validates the definitions and builds the topic index.
// Topics and keys must be unique.
func NewRegistry(defs []Channel) (*Registry, error) {
	r := &Registry{
		channels: make([]Channel, 0, len(defs)),
		byTopic:  make(map[string]Channel, len(defs)),
		byKey:    make(map[string]Channel, len(defs)),
	}

	for _, ch := range defs {
		if err := ch.validate(); err != nil {
			return nil, err
		}
		if prev, ok := r.byTopic[ch.Topic]; ok {
			return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicateTopic, ch.Topic, prev.Key, ch.Key)
		}
		if _, ok := r.byKey[ch.Key]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, ch.Key)
		}
		r.byTopic[ch.Topic] = ch
		r.byKey[ch.Key] = ch
		r.channels = append(r.channels, ch)
	}

	return r, nil
}

// Resolve returns the channel bound to exactly this topic.
func (r *Registry) Resolve(topic string) (Channel, bool) {
	ch, ok := r.byTopic[topic]
	return ch, ok
}

// Lookup returns the channel with the given key.
func (r *Registry) Lookup(key string) (Channel, bool) {
	ch, ok := r.byKey[key]
	return ch, ok
}

// Channels returns a copy of the table in definition order.
func (r *Registry) Channels() []Channel {
	out := make([]Channel, len(r.channels))
	copy(out, r.channels)
	return out
}

// Topics returns every subscription topic in definition order.
func (r *Registry) Topics() []string {
	topics := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		topics = append(topics, ch.Topic)
	}
	return topics
}

// Targets returns every display target id in definition order.
func (r *Registry) Targets() []string {
	targets := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		targets = append(targets, ch.TargetID)
	}
	return targets
}

func (r *Registry) Len() int { return len(r.channels) }

// channelFile is the on-disk layout of CHANNELS_FILE.
type channelFile struct {
	Prefix   string `yaml:"prefix"`
	Channels []struct {
		Key    string  `yaml:"key"`
		Topic  string  `yaml:"topic"`
		Target string  `yaml:"target"`
		Suffix *string `yaml:"suffix"`
	} `yaml:"channels"`
}

// DecodeChannels reads a YAML channel table. Target and suffix are derived
// from the key when omitted; a topic without a slash is taken as a leaf
// under the file's prefix. An empty channel list yields the default table
// under the file's prefix.
func DecodeChannels(r io.Reader) ([]Channel, error) {
	var f channelFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode channel table: %w", err)
	}

	if len(f.Channels) == 0 {
		return DefaultChannels(f.Prefix), nil
	}

	prefix := f.Prefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}

	channels := make([]Channel, 0, len(f.Channels))
	for _, c := range f.Channels {
		topic := c.Topic
		if topic != "" && !strings.Contains(topic, "/") {
			topic = prefix + "/" + topic
		}
		ch := NewChannel(c.Key, topic)
		if c.Target != "" {
			ch.TargetID = c.Target
		}
		if c.Suffix != nil {
			ch.Suffix = *c.Suffix
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// LoadRegistry builds the registry from a YAML file, or from the default
// table under prefix when path is empty.
func LoadRegistry(path, prefix string) (*Registry, error) {
	if path == "" {
		return NewRegistry(DefaultChannels(prefix))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channel table: %w", err)
	}
	defer f.Close()

	defs, err := DecodeChannels(f)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defs)
}
