package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
)

var (
	// ErrCaptureFailed indicates a frame could not be acquired.
	ErrCaptureFailed = errors.New("camera: capture failed")

	// ErrUnknownSource indicates an unrecognized source type in the
	// configuration.
	ErrUnknownSource = errors.New("camera: unknown source type")
)

// Frame is a single captured image.
type Frame struct {
	// Data is the encoded image, ready to serve or publish.
	Data []byte

	// Format is the MIME type of Data, always "image/jpeg" today.
	Format string

	// CapturedAt is when the frame was acquired.
	CapturedAt time.Time
}

// Source yields frames on demand. Implementations must be safe for
// concurrent use; the HTTP stream and the telemetry loop capture
// independently.
type Source interface {
	Frame(ctx context.Context) (*Frame, error)
}

// NewSource builds the Source selected by the configuration.
func NewSource(cfg config.CameraConfig) (Source, error) {
	switch cfg.Source {
	case "pattern", "":
		return NewPatternSource(cfg.Width, cfg.Height, cfg.Quality), nil
	case "file":
		return NewFileSource(cfg.Path), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}
