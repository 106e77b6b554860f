package uplink

import (
	"context"
	"net"
)

// EventType identifies a link event reported by a Driver.
type EventType int

const (
	// EventStarted reports the driver is up and ready for a connect request.
	EventStarted EventType = iota

	// EventDisconnected reports a lost association or a failed connect
	// attempt.
	EventDisconnected

	// EventGotAddress reports the interface holds a usable address.
	EventGotAddress
)

// String returns a human-readable event name for logging.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventDisconnected:
		return "disconnected"
	case EventGotAddress:
		return "got-address"
	default:
		return "unknown"
	}
}

// Event is a link event delivered by a Driver. Addr is set for
// EventGotAddress. Reason optionally carries detail for EventDisconnected.
type Event struct {
	Type   EventType
	Addr   net.IP
	Reason string
}

// Credentials hold the station credentials handed to a Driver. The password
// must never be logged.
type Credentials struct {
	SSID     string
	Password string
}

// Driver abstracts the platform wireless glue. Start brings the driver up
// and registers the event handler; events are delivered from the driver's
// own goroutines until Stop returns. Connect requests (re)association and
// must eventually be answered with EventGotAddress or EventDisconnected.
type Driver interface {
	Start(ctx context.Context, creds Credentials, handler func(Event)) error
	Connect() error
	Stop() error
}

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
