package mqtt

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/settings"
)

// SettingsSource provides namespaced key/value lookups for the broker URL.
// *settings.Store satisfies it.
type SettingsSource interface {
	Get(ctx context.Context, namespace, key string) (string, error)
}

// IdentitySource supplies the hardware address the topic namespace is
// derived from. The uplink manager satisfies it once the link is up.
type IdentitySource interface {
	HardwareAddr() (net.HardwareAddr, error)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the collaborators a Client needs.
type Deps struct {
	Settings SettingsSource
	Identity IdentitySource
	Logger   Logger
}

// Client is the node's namespaced broker client.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	cfg    config.MQTTConfig
	prefix string
	deps   Deps
	logger Logger

	client pahomqtt.Client
	ns     Namespace
	queue  *inboundQueue

	// subscriptions tracks full topics for re-subscription on reconnect.
	subscriptions map[string]byte
	subMu         sync.Mutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex
}

// New creates an uninitialized client. prefix is the topic prefix the base
// topic is built from; empty means DefaultTopicPrefix.
func New(cfg config.MQTTConfig, prefix string, deps Deps) *Client {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Client{
		cfg:           cfg,
		prefix:        prefix,
		deps:          deps,
		logger:        deps.Logger,
		queue:         newInboundQueue(QueueDepth),
		subscriptions: make(map[string]byte),
	}
}

// Init reads the broker URL from the settings store, derives the node's
// base topic from its hardware address and starts the connection.
//
// Init does not wait for the connection: it returns once the client is
// configured, and the transport connects (and keeps reconnecting) in the
// background. Use IsConnected to observe the state.
func (c *Client) Init(ctx context.Context) error {
	brokerURL, err := c.deps.Settings.Get(ctx, settings.Namespace, settings.KeyMQTTURL)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrConfiguration, settings.KeyMQTTURL, err)
	}
	if err := validateBrokerURL(brokerURL); err != nil {
		return err
	}

	mac, err := c.deps.Identity.HardwareAddr()
	if err != nil {
		return fmt.Errorf("%w: reading hardware address: %v", ErrConfiguration, err)
	}
	ns, err := NewNamespace(c.prefix, mac)
	if err != nil {
		return err
	}
	c.ns = ns

	clientID := clientIdentifier(c.cfg, c.prefix)
	opts := buildClientOptions(c.cfg, brokerURL, clientID)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.handleInbound(msg.Topic(), msg.Payload())
	})

	c.logger.Info("starting broker client",
		"client_id", clientID,
		"base_topic", ns.Base())

	c.client = pahomqtt.NewClient(opts)
	c.client.Connect()

	return nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.logger.Info("broker connected", "base_topic", c.ns.Base())
	c.restoreSubscriptions()
}

// handleDisconnect is called when the connection is lost. Reconnection is
// the transport's job; this only flips the flag.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.logger.Warn("broker connection lost", "error", err)
}

// handleInbound routes a received message into the bounded queue. It runs
// on the transport's goroutine and never blocks: when the queue is full the
// oldest entry is evicted.
func (c *Client) handleInbound(topic string, payload []byte) {
	subtopic, ok := c.ns.Split(topic)
	if !ok {
		c.logger.Warn("dropping message outside namespace", "topic", topic)
		return
	}
	if len(subtopic) > MaxSubTopicLen {
		subtopic = subtopic[:MaxSubTopicLen]
	}
	if len(payload) > MaxPayloadLen {
		payload = payload[:MaxPayloadLen]
	}

	// The transport reuses its buffers after the handler returns.
	body := make([]byte, len(payload))
	copy(body, payload)

	if c.queue.push(Message{Topic: subtopic, Payload: body}) {
		c.logger.Warn("inbound queue full, dropped oldest message", "topic", subtopic)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for topic, qos := range c.subscriptions {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(topic, qos, c.inboundHandler())
	}
}

// inboundHandler wraps the inbound path with panic recovery for use as a
// per-subscription callback.
func (c *Client) inboundHandler() pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("inbound handler panic recovered",
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}()
		c.handleInbound(msg.Topic(), msg.Payload())
	}
}

// Receive dequeues the oldest inbound message, waiting up to timeout.
// It reports false when no message arrived in time. Competing consumers
// each receive distinct messages.
func (c *Client) Receive(timeout time.Duration) (Message, bool) {
	return c.queue.pop(timeout)
}

// Pending returns the number of queued inbound messages.
func (c *Client) Pending() int {
	return c.queue.len()
}

// BaseTopic returns the node's base topic, e.g. "ESP32CAM_aabbcc112233".
// It is empty before Init.
func (c *Client) BaseTopic() string {
	return c.ns.Base()
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// HealthCheck verifies the broker connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close disconnects from the broker with a quiesce period for pending
// operations. Close on an uninitialized client is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}
