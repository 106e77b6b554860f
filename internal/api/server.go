// Package api provides the HTTP surface of the camera node: single-frame
// snapshots, a motion-JPEG stream, and a health endpoint.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/FlorianBr/ESP32Cam/internal/camera"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ConnState reports a connectivity flag for the health endpoint. The uplink
// manager and the broker client both satisfy it.
type ConnState interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the HTTP server.
type Deps struct {
	Config  config.HTTPConfig
	Logger  *logging.Logger
	Camera  camera.Source
	Uplink  ConnState // optional
	Broker  ConnState // optional
	Version string
}

// Server is the node's HTTP server.
//
// It manages the listener, routes, and middleware. The server is created
// with New() and started with Start().
type Server struct {
	cfg     config.HTTPConfig
	logger  *logging.Logger
	camera  camera.Source
	uplink  ConnState
	broker  ConnState
	version string
	server  *http.Server
	started time.Time
}

// New creates the server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Camera == nil {
		return nil, fmt.Errorf("camera source is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		camera:  deps.Camera,
		uplink:  deps.Uplink,
		broker:  deps.Broker,
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// The write timeout from the configuration applies as-is; it defaults to 0
// because /stream responses are unbounded.
func (s *Server) Start(_ context.Context) error {
	s.started = time.Now()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info("HTTP server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("http health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("http server not started")
	}
	return nil
}
