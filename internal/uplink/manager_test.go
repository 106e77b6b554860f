package uplink

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/settings"
)

// fakeCreds is an in-memory CredentialSource.
type fakeCreds map[string]string

func (f fakeCreds) Get(_ context.Context, namespace, key string) (string, error) {
	if namespace != settings.Namespace {
		return "", settings.ErrKeyNotFound
	}
	v, ok := f[key]
	if !ok {
		return "", settings.ErrKeyNotFound
	}
	return v, nil
}

func validCreds() fakeCreds {
	return fakeCreds{
		settings.KeyWiFiSSID: "testnet",
		settings.KeyWiFiPass: "hunter22",
	}
}

// scriptDriver answers each Connect call with the next scripted event,
// delivered synchronously from Connect itself the way a driver callback
// would arrive.
type scriptDriver struct {
	mu       sync.Mutex
	handler  func(Event)
	script   []Event
	connects int
	startErr error
	stopped  bool
}

func (d *scriptDriver) Start(_ context.Context, _ Credentials, handler func(Event)) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.handler = handler
	handler(Event{Type: EventStarted})
	return nil
}

func (d *scriptDriver) Connect() error {
	d.mu.Lock()
	i := d.connects
	d.connects++
	var ev *Event
	if i < len(d.script) {
		e := d.script[i]
		ev = &e
	}
	d.mu.Unlock()

	if ev != nil {
		d.handler(*ev)
	}
	return nil
}

func (d *scriptDriver) Stop() error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	return nil
}

func (d *scriptDriver) connectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

func gotAddr(ip string) Event {
	return Event{Type: EventGotAddress, Addr: net.ParseIP(ip)}
}

func disconnected() Event {
	return Event{Type: EventDisconnected, Reason: "test"}
}

func TestInit_Success(t *testing.T) {
	driver := &scriptDriver{script: []Event{gotAddr("192.168.1.50")}}
	m := New(Config{Interface: "wlan0", MaxRetries: 10}, validCreds(), driver, nil)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !m.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if got := m.State(); got != StateUp {
		t.Errorf("State() = %q, want %q", got, StateUp)
	}
	if got := m.Addr().String(); got != "192.168.1.50" {
		t.Errorf("Addr() = %q, want 192.168.1.50", got)
	}
	if got := m.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestInit_SuccessAfterRetries(t *testing.T) {
	driver := &scriptDriver{script: []Event{
		disconnected(),
		disconnected(),
		disconnected(),
		gotAddr("10.0.0.7"),
	}}
	m := New(Config{Interface: "wlan0", MaxRetries: 10}, validCreds(), driver, nil)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !m.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	// Counter resets once the link is up so a later disconnect gets the
	// full budget again.
	if got := m.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
	if got := driver.connectCount(); got != 4 {
		t.Errorf("connect count = %d, want 4", got)
	}
}

func TestInit_RetryBudgetExhausted(t *testing.T) {
	driver := &scriptDriver{script: []Event{
		disconnected(),
		disconnected(),
		disconnected(),
		disconnected(),
	}}
	m := New(Config{Interface: "wlan0", MaxRetries: 3}, validCreds(), driver, nil)

	err := m.Init(context.Background())
	if !errors.Is(err, ErrLinkFailed) {
		t.Fatalf("Init() error = %v, want ErrLinkFailed", err)
	}
	if m.IsConnected() {
		t.Error("IsConnected() = true, want false")
	}
	if got := m.State(); got != StateFailed {
		t.Errorf("State() = %q, want %q", got, StateFailed)
	}
	// Initial connect plus one per budgeted retry.
	if got := driver.connectCount(); got != 4 {
		t.Errorf("connect count = %d, want 4", got)
	}
}

func TestInit_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds fakeCreds
	}{
		{"no ssid", fakeCreds{settings.KeyWiFiPass: "x"}},
		{"no password", fakeCreds{settings.KeyWiFiSSID: "net"}},
		{"empty ssid", fakeCreds{settings.KeyWiFiSSID: "", settings.KeyWiFiPass: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := &scriptDriver{script: []Event{gotAddr("10.0.0.7")}}
			m := New(Config{Interface: "wlan0", MaxRetries: 3}, tt.creds, driver, nil)

			err := m.Init(context.Background())
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Init() error = %v, want ErrConfiguration", err)
			}
			if got := m.State(); got != StateFailed {
				t.Errorf("State() = %q, want %q", got, StateFailed)
			}
			if got := driver.connectCount(); got != 0 {
				t.Errorf("connect count = %d, want 0", got)
			}
		})
	}
}

func TestInit_DriverStartError(t *testing.T) {
	driver := &scriptDriver{startErr: errors.New("no such interface")}
	m := New(Config{Interface: "wlan9", MaxRetries: 3}, validCreds(), driver, nil)

	if err := m.Init(context.Background()); err == nil {
		t.Fatal("Init() error = nil, want error")
	}
	if got := m.State(); got != StateFailed {
		t.Errorf("State() = %q, want %q", got, StateFailed)
	}
}

func TestInit_ContextCancelled(t *testing.T) {
	// Empty script: the driver never answers the connect request.
	driver := &scriptDriver{}
	m := New(Config{Interface: "wlan0", MaxRetries: 3}, validCreds(), driver, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Init(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Init() error = %v, want DeadlineExceeded", err)
	}
	if m.IsConnected() {
		t.Error("IsConnected() = true, want false")
	}
}

func TestInit_CalledTwice(t *testing.T) {
	driver := &scriptDriver{script: []Event{gotAddr("10.0.0.7")}}
	m := New(Config{Interface: "wlan0", MaxRetries: 3}, validCreds(), driver, nil)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	if err := m.Init(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Init() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestLinkLossAfterInit(t *testing.T) {
	driver := &scriptDriver{script: []Event{gotAddr("10.0.0.7")}}
	m := New(Config{Interface: "wlan0", MaxRetries: 3}, validCreds(), driver, nil)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Link drops after startup: the manager retries silently, with the
	// state visible through IsConnected. The script is exhausted so the
	// reconnect stays pending.
	driver.handler(disconnected())
	if m.IsConnected() {
		t.Error("IsConnected() = true after disconnect, want false")
	}
	if got := m.State(); got != StateConnecting {
		t.Errorf("State() = %q, want %q", got, StateConnecting)
	}
	if got := m.Retries(); got != 1 {
		t.Errorf("Retries() = %d, want 1", got)
	}

	// The link comes back and the counter resets.
	driver.handler(gotAddr("10.0.0.8"))
	if !m.IsConnected() {
		t.Error("IsConnected() = false after reconnect, want true")
	}
	if got := m.Retries(); got != 0 {
		t.Errorf("Retries() = %d, want 0", got)
	}
}

func TestStop(t *testing.T) {
	driver := &scriptDriver{script: []Event{gotAddr("10.0.0.7")}}
	m := New(Config{Interface: "wlan0", MaxRetries: 3}, validCreds(), driver, nil)

	// Stop before Init is a no-op.
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() before Init error = %v", err)
	}
	if driver.stopped {
		t.Error("driver stopped before Init")
	}

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !driver.stopped {
		t.Error("driver not stopped")
	}
}
