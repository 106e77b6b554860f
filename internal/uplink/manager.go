package uplink

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/settings"
)

// LinkState describes the current state of the station link.
type LinkState string

const (
	StateIdle       LinkState = "idle"
	StateConnecting LinkState = "connecting"
	StateUp         LinkState = "up"
	StateFailed     LinkState = "failed"
)

// CredentialSource provides namespaced key/value lookups for the link
// credentials. *settings.Store satisfies it.
type CredentialSource interface {
	Get(ctx context.Context, namespace, key string) (string, error)
}

// Config holds the Manager settings.
type Config struct {
	// Interface is the OS interface name backing the link, e.g. "wlan0".
	Interface string

	// MaxRetries bounds reconnect attempts after a disconnect before the
	// link is declared failed.
	MaxRetries int
}

// Manager owns the station link lifecycle. Create it with New, bring the
// link up with Init, and query it with IsConnected. All methods are safe
// for concurrent use.
type Manager struct {
	cfg    Config
	creds  CredentialSource
	driver Driver
	logger Logger

	mu      sync.Mutex
	state   LinkState
	retries int
	addr    net.IP
	started bool

	// outcome receives the result of the first connection attempt exactly
	// once. Buffered so the event handler never blocks on it.
	outcome chan error
}

// New creates a Manager. logger may be nil.
func New(cfg Config, creds CredentialSource, driver Driver, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		cfg:     cfg,
		creds:   creds,
		driver:  driver,
		logger:  logger,
		state:   StateIdle,
		outcome: make(chan error, 1),
	}
}

// Init reads the credentials from the settings store, starts the driver and
// blocks until the link is up, the retry budget is exhausted, or ctx is
// done. On success the retry counter is zero and IsConnected reports true.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.state = StateConnecting
	m.mu.Unlock()

	ssid, err := m.creds.Get(ctx, settings.Namespace, settings.KeyWiFiSSID)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: reading %s: %v", ErrConfiguration, settings.KeyWiFiSSID, err)
	}
	pass, err := m.creds.Get(ctx, settings.Namespace, settings.KeyWiFiPass)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("%w: reading %s: %v", ErrConfiguration, settings.KeyWiFiPass, err)
	}
	if ssid == "" {
		m.setState(StateFailed)
		return fmt.Errorf("%w: empty SSID", ErrConfiguration)
	}

	m.logger.Info("bringing up station link",
		"interface", m.cfg.Interface,
		"ssid", ssid,
		"max_retries", m.cfg.MaxRetries)

	if err := m.driver.Start(ctx, Credentials{SSID: ssid, Password: pass}, m.handleEvent); err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("starting link driver: %w", err)
	}

	select {
	case err := <-m.outcome:
		if err != nil {
			return err
		}
		m.logger.Info("station link up", "interface", m.cfg.Interface, "address", m.Addr())
		return nil
	case <-ctx.Done():
		m.setState(StateFailed)
		return fmt.Errorf("waiting for station link: %w", ctx.Err())
	}
}

// Stop shuts the driver down. The link state is left as-is so late
// IsConnected callers see the last known state.
func (m *Manager) Stop() error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return nil
	}
	return m.driver.Stop()
}

// handleEvent is the single writer of link state. It is invoked from the
// driver's goroutines.
func (m *Manager) handleEvent(ev Event) {
	var (
		connect bool
		signal  bool
		result  error
	)

	m.mu.Lock()
	switch ev.Type {
	case EventStarted:
		connect = true

	case EventDisconnected:
		m.addr = nil
		if m.retries < m.cfg.MaxRetries {
			m.retries++
			m.state = StateConnecting
			connect = true
		} else {
			m.state = StateFailed
			signal = true
			result = fmt.Errorf("%w: after %d retries", ErrLinkFailed, m.cfg.MaxRetries)
		}

	case EventGotAddress:
		m.retries = 0
		m.state = StateUp
		m.addr = ev.Addr
		signal = true
	}
	retries := m.retries
	m.mu.Unlock()

	switch ev.Type {
	case EventDisconnected:
		if connect {
			m.logger.Warn("station link lost, reconnecting",
				"interface", m.cfg.Interface,
				"attempt", retries,
				"max_retries", m.cfg.MaxRetries,
				"reason", ev.Reason)
		} else {
			m.logger.Error("station link failed",
				"interface", m.cfg.Interface,
				"max_retries", m.cfg.MaxRetries,
				"reason", ev.Reason)
		}
	case EventGotAddress:
		m.logger.Info("station link got address", "interface", m.cfg.Interface, "address", ev.Addr)
	}

	if connect {
		if err := m.driver.Connect(); err != nil {
			m.logger.Error("connect request failed", "error", err)
		}
	}
	if signal {
		select {
		case m.outcome <- result:
		default:
		}
	}
}

// State returns the current link state.
func (m *Manager) State() LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the link is currently up.
func (m *Manager) IsConnected() bool {
	return m.State() == StateUp
}

// Addr returns the current interface address, or nil when the link is down.
func (m *Manager) Addr() net.IP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// Retries returns the current reconnect attempt counter.
func (m *Manager) Retries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries
}

// Interface resolves the OS interface backing the link. Callers use it to
// derive the node identity from the hardware address.
func (m *Manager) Interface() (*net.Interface, error) {
	iface, err := net.InterfaceByName(m.cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("resolving interface %s: %w", m.cfg.Interface, err)
	}
	return iface, nil
}

// HardwareAddr returns the interface's hardware address. It satisfies the
// broker client's identity source.
func (m *Manager) HardwareAddr() (net.HardwareAddr, error) {
	iface, err := m.Interface()
	if err != nil {
		return nil, err
	}
	return iface.HardwareAddr, nil
}

func (m *Manager) setState(s LinkState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
