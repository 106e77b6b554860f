// Package uplink manages the wireless station link of the camera node.
//
// The Manager owns the link lifecycle: it reads the SSID and password from
// the settings store, asks a Driver to associate, and supervises the link
// through driver events. Init blocks the caller until the link is up or the
// retry budget is exhausted, mirroring how the node must not start its
// broker client or HTTP server before connectivity exists. After Init
// returns, later link loss is retried silently and only surfaces through
// IsConnected.
//
// # Drivers
//
// A Driver abstracts the platform glue. SupplicantDriver supervises a
// wpa_supplicant helper (via internal/process) and polls the OS interface
// for carrier and address, translating transitions into link events. Tests
// use a scripted driver.
//
// # State machine
//
//	idle → connecting → up        (got address; retry counter resets)
//	         ↑    |
//	         └────┘               (disconnect with budget left: reconnect)
//	       connecting → failed    (disconnect with budget exhausted)
//
// Only the driver event handler mutates link state.
package uplink
