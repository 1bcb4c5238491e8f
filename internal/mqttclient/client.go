// Package mqttclient wraps the paho MQTT client with the options and
// connection events the station services need. Brokers may be reached over
// tcp://, ssl://, ws:// or wss://.
package mqttclient

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Options mirror the connect options of the browser client: client id,
// clean session, connect timeout, reconnect period and protocol version.
type Options struct {
	BrokerURL       string
	ClientID        string
	CleanSession    bool
	ConnectTimeout  time.Duration
	ReconnectPeriod time.Duration
	// ProtocolVersion is 3 (MQTT 3.1) or 4 (MQTT 3.1.1).
	ProtocolVersion uint
	// SubscribeTimeout bounds how long Subscribe waits for a SUBACK.
	SubscribeTimeout time.Duration
}

// DefaultOptions returns the browser dashboard's connection settings.
func DefaultOptions() Options {
	return Options{
		BrokerURL:        "ws://broker.hivemq.com:8000/mqtt",
		CleanSession:     true,
		ConnectTimeout:   10 * time.Second,
		ReconnectPeriod:  3 * time.Second,
		ProtocolVersion:  4,
		SubscribeTimeout: 10 * time.Second,
	}
}

// Validate checks the options before a client is built.
func (o Options) Validate() error {
	if o.BrokerURL == "" {
		return errors.New("mqtt: broker url is empty")
	}
	u, err := url.Parse(o.BrokerURL)
	if err != nil {
		return fmt.Errorf("mqtt: parse broker url: %w", err)
	}
	switch u.Scheme {
	case "tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("mqtt: unsupported broker scheme %q", u.Scheme)
	}
	if o.ClientID == "" {
		return errors.New("mqtt: client id is empty")
	}
	if o.ProtocolVersion != 3 && o.ProtocolVersion != 4 {
		return fmt.Errorf("mqtt: unsupported protocol version %d", o.ProtocolVersion)
	}
	if o.ConnectTimeout <= 0 || o.ReconnectPeriod <= 0 {
		return errors.New("mqtt: connect timeout and reconnect period must be positive")
	}
	return nil
}

// Handlers are the connection events a service reacts to. Any may be nil.
// paho calls them from its own goroutines; messages arrive in order.
type Handlers struct {
	OnConnect        func(c *Client)
	OnMessage        func(topic string, payload []byte)
	OnConnectionLost func(err error)
	OnReconnecting   func()
	OnConnectAttempt func(broker *url.URL)
}

// Client is a paho client bound to one broker.
type Client struct {
	raw  mqtt.Client
	opts Options
}

// New builds the client without connecting.
func New(opts Options, h Handlers) (*Client, error) {
	if opts.SubscribeTimeout <= 0 {
		opts.SubscribeTimeout = 10 * time.Second
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	c := &Client{opts: opts}

	o := mqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetCleanSession(opts.CleanSession)
	o.SetProtocolVersion(opts.ProtocolVersion)
	o.SetConnectTimeout(opts.ConnectTimeout)
	o.SetAutoReconnect(true)
	o.SetMaxReconnectInterval(opts.ReconnectPeriod)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(opts.ReconnectPeriod)
	o.SetOrderMatters(true)

	o.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		if h.OnMessage != nil {
			h.OnMessage(msg.Topic(), msg.Payload())
		}
	})
	o.SetOnConnectHandler(func(mqtt.Client) {
		if h.OnConnect != nil {
			h.OnConnect(c)
		}
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if h.OnConnectionLost != nil {
			h.OnConnectionLost(err)
		}
	})
	o.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		if h.OnReconnecting != nil {
			h.OnReconnecting()
		}
	})
	o.SetConnectionAttemptHandler(func(broker *url.URL, cfg *tls.Config) *tls.Config {
		if h.OnConnectAttempt != nil {
			h.OnConnectAttempt(broker)
		}
		return cfg
	})

	c.raw = mqtt.NewClient(o)
	return c, nil
}

// Connect starts connecting and returns immediately; paho keeps retrying
// every ReconnectPeriod until it succeeds or Close is called. The returned
// channel yields the final outcome of the first connection.
func (c *Client) Connect() <-chan error {
	done := make(chan error, 1)
	token := c.raw.Connect()
	go func() {
		<-token.Done()
		done <- token.Error()
	}()
	return done
}

// Subscribe issues a QoS 0 subscription and reports the outcome to done
// without blocking the caller. Messages go to Handlers.OnMessage.
func (c *Client) Subscribe(topic string, done func(err error)) {
	token := c.raw.Subscribe(topic, 0, nil)
	go func() {
		var err error
		if !token.WaitTimeout(c.opts.SubscribeTimeout) {
			err = fmt.Errorf("subscribe %s: timed out after %s", topic, c.opts.SubscribeTimeout)
		} else if token.Error() != nil {
			err = fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		if done != nil {
			done(err)
		}
	}()
}

// Publish sends a QoS 0 message and waits for it to leave the client.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if !c.raw.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := c.raw.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

// PublishAsync sends a QoS 0 message without waiting. Used for log mirroring.
func (c *Client) PublishAsync(topic string, payload []byte) {
	if !c.raw.IsConnectionOpen() {
		return
	}
	c.raw.Publish(topic, 0, false, payload)
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.raw.IsConnectionOpen()
}

// Close disconnects, allowing 250ms for in-flight work.
func (c *Client) Close() {
	c.raw.Disconnect(250)
}

func (c *Client) String() string {
	return fmt.Sprintf("mqttclient(%s, %s)", c.opts.ClientID, c.opts.BrokerURL)
}
