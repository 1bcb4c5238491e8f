package logging

// Publisher sends a payload without waiting for delivery.
type Publisher interface {
	PublishAsync(topic string, payload []byte)
}

// MqttLogWriter is an io.Writer that forwards each log line to
// logs/<service>. Publishing is fire-and-forget so logging never blocks on
// the broker; lines written while disconnected are dropped.
type MqttLogWriter struct {
	client Publisher
	topic  string
}

// NewMqttLogWriter mirrors log output of serviceName to logs/<serviceName>.
func NewMqttLogWriter(client Publisher, serviceName string) *MqttLogWriter {
	return &MqttLogWriter{
		client: client,
		topic:  TopicFor(serviceName),
	}
}

// TopicFor returns the log topic of a service.
func TopicFor(serviceName string) string {
	return "logs/" + serviceName
}

// Write copies p, since slog reuses its buffer after Write returns.
func (w *MqttLogWriter) Write(p []byte) (int, error) {
	payload := make([]byte, len(p))
	copy(payload, p)

	w.client.PublishAsync(w.topic, payload)
	return len(p), nil
}
