package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStatus mirrors a node status sample to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - nodeID: The node's base topic, e.g. "ESP32CAM_aabbcc112233"
//   - uptimeSeconds: Seconds since the node started
//   - linkUp: Whether the station link is up
//   - brokerUp: Whether the broker connection is up
func (c *Client) WriteStatus(nodeID string, uptimeSeconds int64, linkUp, brokerUp bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"node_status",
		map[string]string{
			"node_id": nodeID,
		},
		map[string]interface{}{
			"uptime_seconds": uptimeSeconds,
			"link_up":        linkUp,
			"broker_up":      brokerUp,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFrameMetric records a captured frame's size.
//
// Used to spot encoder regressions and misconfigured quality settings.
//
// Parameters:
//   - nodeID: The node's base topic
//   - sink: Where the frame went ("snapshot", "stream", "publish")
//   - sizeBytes: Encoded frame size
func (c *Client) WriteFrameMetric(nodeID, sink string, sizeBytes int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"frame",
		map[string]string{
			"node_id": nodeID,
			"sink":    sink,
		},
		map[string]interface{}{
			"size_bytes": sizeBytes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
