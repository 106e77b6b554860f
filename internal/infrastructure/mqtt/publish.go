package mqtt

import (
	"fmt"
)

// publishQoS is the delivery level for all outbound messages. At least
// once, never retained: stale frames and stale status are worthless.
const publishQoS = 1

// Maximum outbound payload size (1MB). A JPEG frame fits comfortably; this
// only guards against runaway payloads.
const maxPublishSize = 1 << 20

// Publish sends a payload to a subtopic below the node's base topic.
//
// The subtopic is truncated to MaxSubTopicLen before the full topic is
// built. Publishing while disconnected returns ErrNotConnected and drops
// the message; there is no outbound buffering.
//
// Example:
//
//	err := client.Publish("Status", statusJSON)
//	// publishes to ESP32CAM_aabbcc112233/Status
func (c *Client) Publish(subtopic string, payload []byte) error {
	if len(payload) > maxPublishSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrTransport, len(payload), maxPublishSize)
	}

	// Connection check comes first: a down link must never reach the
	// transport, the caller decides whether to retry.
	if !c.IsConnected() {
		return ErrNotConnected
	}

	topic := c.ns.Topic(subtopic)
	token := c.client.Publish(topic, publishQoS, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: publish timeout after %v", ErrTransport, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: publish: %v", ErrTransport, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
func (c *Client) PublishString(subtopic, payload string) error {
	return c.Publish(subtopic, []byte(payload))
}
