package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/FlorianBr/ESP32Cam/internal/camera"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/mqtt"
)

// Subtopics the service publishes to, relative to the node's base topic.
const (
	statusSubtopic   = "Status"
	snapshotSubtopic = "Snapshot"
)

// commandSubscription matches all inbound commands.
const commandSubscription = "cmd/#"

// receivePollInterval bounds how long the command loop blocks on the queue
// before rechecking its context.
const receivePollInterval = time.Second

// Broker is the slice of the broker client the service needs.
type Broker interface {
	Publish(subtopic string, payload []byte) error
	Subscribe(subtopic string) error
	Receive(timeout time.Duration) (mqtt.Message, bool)
	IsConnected() bool
	BaseTopic() string
}

// ConnState reports the uplink state for status samples.
type ConnState interface {
	IsConnected() bool
}

// StatusMirror receives a copy of every status sample. The InfluxDB client
// satisfies it.
type StatusMirror interface {
	WriteStatus(nodeID string, uptimeSeconds int64, linkUp, brokerUp bool)
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

// Status is the periodic status document. Field names are part of the wire
// format consumed by existing dashboards.
type Status struct {
	Uptime    int64  `json:"Uptime"`
	Timestamp string `json:"Timestamp"`
	Firmware  string `json:"Firmware"`
}

// Config holds the service settings.
type Config struct {
	// StatusInterval is the cadence of status publishes.
	StatusInterval time.Duration

	// ImageInterval is the cadence of snapshot publishes.
	ImageInterval time.Duration

	// Firmware is the version string reported in status documents.
	Firmware string
}

// Deps are the collaborators the service needs. Mirror and Uplink may be nil.
type Deps struct {
	Broker Broker
	Camera camera.Source
	Uplink ConnState
	Mirror StatusMirror
	Logger Logger
}

// Service owns the telemetry loops. Create with New, start with Start,
// stop with Close.
type Service struct {
	cfg    Config
	broker Broker
	camera camera.Source
	uplink ConnState
	mirror StatusMirror
	logger Logger

	started time.Time
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates the service.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Broker == nil {
		return nil, fmt.Errorf("broker is required")
	}
	if deps.Camera == nil {
		return nil, fmt.Errorf("camera source is required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 30 * time.Second
	}
	if cfg.ImageInterval <= 0 {
		cfg.ImageInterval = 60 * time.Second
	}

	return &Service{
		cfg:    cfg,
		broker: deps.Broker,
		camera: deps.Camera,
		uplink: deps.Uplink,
		mirror: deps.Mirror,
		logger: deps.Logger,
	}, nil
}

// Start subscribes to commands and launches the loops. The subscription is
// tracked by the broker client, so a failure here only delays delivery
// until the next reconnect.
func (s *Service) Start(ctx context.Context) error {
	s.started = time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.broker.Subscribe(commandSubscription); err != nil {
		s.logger.Warn("command subscription deferred", "subtopic", commandSubscription, "error", err)
	}

	s.wg.Add(3)
	go s.statusLoop(runCtx)
	go s.snapshotLoop(runCtx)
	go s.commandLoop(runCtx)

	s.logger.Info("telemetry started",
		"status_interval", s.cfg.StatusInterval,
		"image_interval", s.cfg.ImageInterval)
	return nil
}

// Close stops the loops and waits for them to finish.
func (s *Service) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

// statusLoop publishes the status document on a fixed cadence.
func (s *Service) statusLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishStatus()
		}
	}
}

// snapshotLoop publishes a frame on a fixed cadence.
func (s *Service) snapshotLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ImageInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishSnapshot(ctx)
		}
	}
}

// commandLoop drains the inbound queue and dispatches known commands.
func (s *Service) commandLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		msg, ok := s.broker.Receive(receivePollInterval)
		if !ok {
			continue
		}

		switch msg.Topic {
		case "cmd/snapshot":
			s.logger.Info("snapshot requested", "topic", msg.Topic)
			s.publishSnapshot(ctx)
		case "cmd/status":
			s.logger.Info("status requested", "topic", msg.Topic)
			s.publishStatus()
		default:
			s.logger.Warn("unknown command ignored", "topic", msg.Topic, "payload", string(msg.Payload))
		}
	}
}

// publishStatus builds and publishes one status document, mirroring it to
// the time-series store when configured. Failures skip the cycle.
func (s *Service) publishStatus() {
	now := time.Now().UTC()
	status := Status{
		Uptime:    int64(now.Sub(s.started).Seconds()),
		Timestamp: now.Format(time.RFC3339),
		Firmware:  s.cfg.Firmware,
	}

	payload, err := json.Marshal(status)
	if err != nil {
		s.logger.Error("encoding status", "error", err)
		return
	}

	if err := s.broker.Publish(statusSubtopic, payload); err != nil {
		s.logger.Warn("status publish skipped", "error", err)
	}

	if s.mirror != nil {
		linkUp := s.uplink != nil && s.uplink.IsConnected()
		s.mirror.WriteStatus(s.broker.BaseTopic(), status.Uptime, linkUp, s.broker.IsConnected())
	}
}

// publishSnapshot captures and publishes one frame. Failures skip the cycle.
func (s *Service) publishSnapshot(ctx context.Context) {
	frame, err := s.camera.Frame(ctx)
	if err != nil {
		s.logger.Warn("snapshot capture skipped", "error", err)
		return
	}

	if err := s.broker.Publish(snapshotSubtopic, frame.Data); err != nil {
		s.logger.Warn("snapshot publish skipped", "error", err)
		return
	}
	s.logger.Debug("snapshot published", "bytes", len(frame.Data))
}
