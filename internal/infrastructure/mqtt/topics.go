package mqtt

import (
	"fmt"
	"net"
	"strings"
)

// Buffer limits carried over from the firmware wire format. Oversized
// subtopics and inbound payloads are truncated silently, never rejected.
const (
	// MaxTopicLen is the longest full topic the node handles.
	MaxTopicLen = 250

	// MaxBaseLen caps the base topic (prefix plus hardware address).
	MaxBaseLen = 128

	// MaxSubTopicLen caps a subtopic so base + "/" + subtopic fits.
	MaxSubTopicLen = MaxTopicLen - MaxBaseLen

	// MaxPayloadLen caps an inbound payload as queued.
	MaxPayloadLen = 128

	// DefaultTopicPrefix is used when no prefix is configured.
	DefaultTopicPrefix = "ESP32CAM"
)

// Namespace is the per-node topic namespace. All topics the node publishes
// or subscribes to live strictly below its base topic.
type Namespace struct {
	base string
}

// NewNamespace derives the namespace from the topic prefix and the node's
// hardware address.
//
// Example: prefix "ESP32CAM" and address aa:bb:cc:11:22:33 yield the base
// topic "ESP32CAM_aabbcc112233".
func NewNamespace(prefix string, mac net.HardwareAddr) (Namespace, error) {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if len(mac) < 6 {
		return Namespace{}, fmt.Errorf("%w: need a 6-byte hardware address, got %d bytes", ErrConfiguration, len(mac))
	}
	base := fmt.Sprintf("%s_%02x%02x%02x%02x%02x%02x",
		prefix, mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
	if len(base) > MaxBaseLen {
		base = base[:MaxBaseLen]
	}
	return Namespace{base: base}, nil
}

// Base returns the node's base topic.
func (n Namespace) Base() string {
	return n.base
}

// Topic builds the full topic for a subtopic, truncating the subtopic to
// MaxSubTopicLen. The separator is always present, so an empty subtopic
// yields "base/".
func (n Namespace) Topic(subtopic string) string {
	if len(subtopic) > MaxSubTopicLen {
		subtopic = subtopic[:MaxSubTopicLen]
	}
	return n.base + "/" + subtopic
}

// Split strips the namespace from a full inbound topic. It reports false
// when the topic is outside the namespace or carries no subtopic; such
// messages are dropped by the inbound path.
func (n Namespace) Split(topic string) (string, bool) {
	prefix := n.base + "/"
	if len(topic) <= len(prefix) || !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	return topic[len(prefix):], true
}
