// Package camera provides JPEG frame acquisition for the node.
//
// A Source yields single frames on demand; the HTTP surface and the
// telemetry loops pull from it. Two sources exist: FileSource reads a JPEG
// from disk on every capture (a v4l2 loopback snapshot file, or a fixture),
// and PatternSource renders a generated test card when no capture device is
// present. Capture failures are returned to the caller, never fatal.
package camera
