// Package settings provides the on-device settings store for the camera node.
//
// Settings are namespaced key/value pairs persisted in SQLite. They hold the
// per-device provisioning data that must survive restarts and cannot live in
// config.yaml, because a single image is flashed to many devices:
//
//   - SETTINGS/WIFI_SSID: uplink network name
//   - SETTINGS/WIFI_PASS: uplink password
//   - SETTINGS/MQTT_URL: broker URL (e.g. "tcp://broker:1883")
//
// # Usage
//
//	store, err := settings.Open(ctx, settings.Config{Path: "./data/settings.db"})
//	if err != nil { ... }
//	defer store.Close()
//
//	ssid, err := store.Get(ctx, settings.Namespace, settings.KeyWiFiSSID)
//	if errors.Is(err, settings.ErrKeyNotFound) {
//	    // device is not provisioned
//	}
//
// A missing key is reported as ErrKeyNotFound; callers that require a key
// treat this as a fatal configuration error.
package settings
