// Package telemetry runs the node's periodic publishing tasks and its
// command consumer.
//
// Three loops run for the life of the service:
//   - Status: a JSON status document to subtopic "Status" every interval.
//   - Snapshot: a raw JPEG frame to subtopic "Snapshot" every interval.
//   - Commands: drains the broker client's inbound queue and dispatches
//     "cmd/snapshot" and "cmd/status" as on-demand publishes.
//
// Publish and capture failures are logged and the cycle skipped; the loops
// never stop on transient errors. When an InfluxDB mirror is configured,
// every status sample is also written there.
package telemetry
