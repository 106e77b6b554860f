package mqtt

import (
	"fmt"
)

// subscribeQoS is the delivery level for inbound subscriptions. Commands
// are idempotent; duplicates cost more than losses.
const subscribeQoS = 0

// Subscribe registers interest in a subtopic below the node's base topic.
// Wildcards work relative to the base, e.g. "cmd/#".
//
// Unlike Publish, Subscribe is issued regardless of connection state: the
// subscription is tracked and restored on every (re)connect, so subscribing
// during the initial connect window is not an error. Received messages land
// in the inbound queue and are drained with Receive.
func (c *Client) Subscribe(subtopic string) error {
	if c.client == nil {
		return fmt.Errorf("%w: client not initialized", ErrConfiguration)
	}

	topic := c.ns.Topic(subtopic)

	c.subMu.Lock()
	c.subscriptions[topic] = subscribeQoS
	c.subMu.Unlock()

	// Kept in the tracking map even when the immediate attempt fails; the
	// reconnect handler retries it.
	token := c.client.Subscribe(topic, subscribeQoS, c.inboundHandler())
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: subscribe timeout after %v", ErrTransport, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: subscribe: %v", ErrTransport, err)
	}

	return nil
}

// Unsubscribe removes a subscription and stops receiving messages for a
// subtopic. Messages already queued remain receivable.
func (c *Client) Unsubscribe(subtopic string) error {
	if c.client == nil {
		return fmt.Errorf("%w: client not initialized", ErrConfiguration)
	}

	topic := c.ns.Topic(subtopic)

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: unsubscribe timeout after %v", ErrTransport, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: unsubscribe: %v", ErrTransport, err)
	}

	return nil
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a subscription exists for the given subtopic.
func (c *Client) HasSubscription(subtopic string) bool {
	topic := c.ns.Topic(subtopic)
	c.subMu.Lock()
	defer c.subMu.Unlock()
	_, exists := c.subscriptions[topic]
	return exists
}
