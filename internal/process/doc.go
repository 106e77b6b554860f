// Package process provides subprocess lifecycle management for the camera node.
//
// The node manages wpa_supplicant itself when uplink.supplicant.managed is
// enabled; this package owns the start/monitor/restart/stop lifecycle of
// that helper so the uplink code only deals with link events.
//
// Features:
//   - Start/stop subprocess with graceful shutdown
//   - Automatic restart on failure with configurable delay
//   - Log capture from subprocess stdout/stderr
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:   "wpa_supplicant",
//	    Binary: "/usr/sbin/wpa_supplicant",
//	    Args:   []string{"-i", "wlan0", "-c", confPath, "-D", "nl80211"},
//	})
//	mgr.SetLogger(log)
//	if err := mgr.Start(ctx); err != nil { ... }
//	defer mgr.Stop()
//
// Thread Safety: all methods are safe for concurrent use.
package process
