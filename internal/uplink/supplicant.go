package uplink

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FlorianBr/ESP32Cam/internal/process"
)

const (
	defaultPollInterval = 500 * time.Millisecond

	// connectTimeout bounds a single association attempt. A Connect request
	// not answered by an address within this window is reported as a
	// disconnect so the retry budget advances.
	connectTimeout = 15 * time.Second
)

// SupplicantConfig configures the SupplicantDriver.
type SupplicantConfig struct {
	// Interface is the wireless interface name, e.g. "wlan0".
	Interface string

	// Managed starts and supervises a wpa_supplicant process. When false
	// association is left to the host (systemd, NetworkManager) and the
	// driver only watches the interface.
	Managed bool

	// Binary is the wpa_supplicant executable path (managed mode).
	Binary string

	// Driver is the wpa_supplicant driver backend, e.g. "nl80211".
	Driver string

	// ConfigDir receives the generated supplicant configuration file
	// (managed mode). The file contains the passphrase and is written 0600.
	ConfigDir string

	// PollInterval is the interface polling cadence. Zero means 500ms.
	PollInterval time.Duration
}

// SupplicantDriver implements Driver on top of a supervised wpa_supplicant
// process and OS interface polling. In unmanaged mode it is a pure watcher.
type SupplicantDriver struct {
	cfg    SupplicantConfig
	logger Logger

	proc   *process.Manager
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	handler  func(Event)
	hasAddr  bool
	deadline time.Time // zero when no association attempt is pending
	confPath string
}

// NewSupplicantDriver creates a driver for the given interface. logger may
// be nil.
func NewSupplicantDriver(cfg SupplicantConfig, logger Logger) *SupplicantDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &SupplicantDriver{cfg: cfg, logger: logger}
}

// Start brings the driver up. In managed mode it writes the supplicant
// configuration and starts the helper process, then begins polling the
// interface. EventStarted is delivered once the polling loop runs.
func (d *SupplicantDriver) Start(ctx context.Context, creds Credentials, handler func(Event)) error {
	d.mu.Lock()
	if d.handler != nil {
		d.mu.Unlock()
		return fmt.Errorf("supplicant driver for %s already started", d.cfg.Interface)
	}
	d.handler = handler
	d.mu.Unlock()

	if d.cfg.Managed {
		confPath, err := d.writeSupplicantConf(creds)
		if err != nil {
			return err
		}
		d.confPath = confPath

		d.proc = process.NewManager(process.Config{
			Name:   "wpa_supplicant",
			Binary: d.cfg.Binary,
			Args: []string{
				"-i", d.cfg.Interface,
				"-c", confPath,
				"-D", d.cfg.Driver,
			},
			RestartOnFailure:   true,
			MaxRestartAttempts: 0, // keep trying; the link budget bounds us
		})
		d.proc.SetLogger(d.logger)

		if err := d.proc.Start(ctx); err != nil {
			return fmt.Errorf("starting wpa_supplicant: %w", err)
		}
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go d.poll(pollCtx)

	return nil
}

// Connect arms the association window. The supervised supplicant associates
// autonomously from its configuration file, so there is nothing to send; a
// missing address once the window closes is reported as a disconnect.
func (d *SupplicantDriver) Connect() error {
	d.mu.Lock()
	d.deadline = time.Now().Add(connectTimeout)
	d.mu.Unlock()
	return nil
}

// Stop halts polling and, in managed mode, the supplicant process. The
// generated configuration file is removed because it holds the passphrase.
func (d *SupplicantDriver) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()

	var err error
	if d.proc != nil {
		err = d.proc.Stop()
	}
	if d.confPath != "" {
		if rmErr := os.Remove(d.confPath); rmErr != nil && !os.IsNotExist(rmErr) {
			d.logger.Warn("removing supplicant config", "path", d.confPath, "error", rmErr)
		}
	}
	return err
}

func (d *SupplicantDriver) writeSupplicantConf(creds Credentials) (string, error) {
	conf := fmt.Sprintf("ctrl_interface=/var/run/wpa_supplicant\nnetwork={\n\tssid=%q\n\tpsk=%q\n}\n",
		creds.SSID, creds.Password)
	path := filepath.Join(d.cfg.ConfigDir, fmt.Sprintf("wpa_%s.conf", d.cfg.Interface))
	if err := os.WriteFile(path, []byte(conf), 0600); err != nil {
		return "", fmt.Errorf("writing supplicant config: %w", err)
	}
	return path, nil
}

// poll watches the interface and translates state transitions into events.
func (d *SupplicantDriver) poll(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.emit(Event{Type: EventStarted})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkInterface()
		}
	}
}

func (d *SupplicantDriver) checkInterface() {
	addr := interfaceAddr(d.cfg.Interface)

	d.mu.Lock()
	had := d.hasAddr
	pending := !d.deadline.IsZero()
	expired := pending && time.Now().After(d.deadline)

	var ev *Event
	switch {
	case addr != nil && !had:
		d.hasAddr = true
		d.deadline = time.Time{}
		ev = &Event{Type: EventGotAddress, Addr: addr}
	case addr == nil && had:
		d.hasAddr = false
		d.deadline = time.Time{}
		ev = &Event{Type: EventDisconnected, Reason: "address lost"}
	case addr == nil && expired:
		d.deadline = time.Time{}
		ev = &Event{Type: EventDisconnected, Reason: "association timeout"}
	}
	d.mu.Unlock()

	if ev != nil {
		d.emit(*ev)
	}
}

func (d *SupplicantDriver) emit(ev Event) {
	d.mu.Lock()
	handler := d.handler
	d.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// interfaceAddr returns the first global unicast IPv4 address of the named
// interface, or nil when the interface is down or unaddressed.
func interfaceAddr(name string) net.IP {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	if iface.Flags&net.FlagUp == 0 {
		return nil
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		return ip
	}
	return nil
}
