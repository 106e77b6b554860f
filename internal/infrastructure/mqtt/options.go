package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the per-attempt connection timeout. The
	// client keeps retrying in the background regardless.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is used when the configured keepalive is zero.
	defaultKeepAlive = 60 * time.Second

	// tlsMinVersion is the minimum TLS version for ssl:// broker URLs.
	tlsMinVersion = tls.VersionTLS12
)

// validateBrokerURL checks the broker URL from the settings store before it
// is handed to the transport.
func validateBrokerURL(brokerURL string) error {
	if brokerURL == "" {
		return fmt.Errorf("%w: empty broker URL", ErrConfiguration)
	}
	u, err := url.Parse(brokerURL)
	if err != nil {
		return fmt.Errorf("%w: parsing broker URL: %v", ErrConfiguration, err)
	}
	switch u.Scheme {
	case "tcp", "mqtt", "ssl", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("%w: unsupported broker URL scheme %q", ErrConfiguration, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: broker URL has no host", ErrConfiguration)
	}
	return nil
}

// buildClientOptions creates paho options for the camera node.
//
// This configures:
//   - Broker URL as provisioned in the settings store
//   - Client ID (configured, or prefix plus a random suffix)
//   - Auto-reconnect with exponential backoff
//   - Clean session mode
//   - TLS for ssl:// and mqtts:// URLs
func buildClientOptions(cfg config.MQTTConfig, brokerURL, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)

	// Clean session - a camera node has no use for stale queued commands.
	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff. The initial connect also
	// retries so the node comes up even when the broker boots later.
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)

	keepAlive := time.Duration(cfg.KeepAlive) * time.Second
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	if strings.HasPrefix(brokerURL, "ssl://") || strings.HasPrefix(brokerURL, "mqtts://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// clientIdentifier returns the configured client ID, or derives one from
// the topic prefix so parallel nodes never collide on the broker.
func clientIdentifier(cfg config.MQTTConfig, prefix string) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s", strings.ToLower(prefix), suffix)
}
