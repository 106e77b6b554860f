// Package mqtt provides the broker messaging client of the camera node.
//
// This package manages:
//   - Connection to the broker with auto-reconnect (URL from the settings store)
//   - Namespaced publishing under the node's base topic
//   - Subscriptions routed into a bounded inbound queue
//   - Connection health monitoring
//
// # Topic namespace
//
// Every node owns a base topic derived from its hardware address:
//
//	ESP32CAM_aabbcc112233
//
// All publishes and subscriptions are relative to that base, so a fleet of
// nodes shares one broker without topic collisions. Inbound messages are
// stripped of the base before queueing; consumers only ever see subtopics.
//
// # Inbound queue
//
// Received messages land in a fixed-depth queue. When the queue is full the
// oldest message is dropped so a stalled consumer never blocks the network
// path, and drains always observe the newest traffic. Receive is a
// competing-consumer operation with a timeout.
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT, cfg.Device.TopicPrefix, mqtt.Deps{
//	    Settings: store,
//	    Identity: link,
//	})
//	if err := client.Init(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Subscribe("cmd/#")
//	for {
//	    msg, ok := client.Receive(time.Second)
//	    if !ok {
//	        continue
//	    }
//	    // msg.Topic is relative, e.g. "cmd/snapshot"
//	}
package mqtt
