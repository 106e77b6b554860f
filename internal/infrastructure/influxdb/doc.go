// Package influxdb provides the optional time-series mirror of the node's
// status telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// The broker carries the live status stream; this package mirrors the same
// samples into InfluxDB for fleets that want retention and dashboards:
//   - Node status (uptime, link state, broker state)
//   - Frame metrics (encoded sizes per sink)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStatus("ESP32CAM_aabbcc112233", 3600, true, true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
package influxdb
