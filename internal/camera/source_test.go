package camera

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CameraConfig
		want    any
		wantErr bool
	}{
		{"pattern", config.CameraConfig{Source: "pattern"}, &PatternSource{}, false},
		{"default", config.CameraConfig{}, &PatternSource{}, false},
		{"file", config.CameraConfig{Source: "file", Path: "/tmp/x.jpg"}, &FileSource{}, false},
		{"unknown", config.CameraConfig{Source: "v4l9"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSource) {
					t.Fatalf("NewSource() error = %v, want ErrUnknownSource", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSource() error = %v", err)
			}
			switch tt.want.(type) {
			case *PatternSource:
				if _, ok := src.(*PatternSource); !ok {
					t.Errorf("NewSource() = %T, want *PatternSource", src)
				}
			case *FileSource:
				if _, ok := src.(*FileSource); !ok {
					t.Errorf("NewSource() = %T, want *FileSource", src)
				}
			}
		})
	}
}

func TestPatternSource_Frame(t *testing.T) {
	src := NewPatternSource(320, 240, 80)

	frame, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if frame.Format != "image/jpeg" {
		t.Errorf("Format = %q, want image/jpeg", frame.Format)
	}
	if frame.CapturedAt.IsZero() {
		t.Error("CapturedAt is zero")
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		t.Fatalf("frame is not a decodable JPEG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("frame size = %dx%d, want 320x240", bounds.Dx(), bounds.Dy())
	}
}

func TestPatternSource_FramesDiffer(t *testing.T) {
	src := NewPatternSource(320, 240, 80)

	a, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	b, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if bytes.Equal(a.Data, b.Data) {
		t.Error("consecutive frames are identical, want moving marker")
	}
}

func TestPatternSource_BadDimensionsFallBack(t *testing.T) {
	src := NewPatternSource(0, -1, 300)

	frame, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Errorf("frame size = %v, want 640x480", img.Bounds())
	}
}

func TestPatternSource_ContextCancelled(t *testing.T) {
	src := NewPatternSource(320, 240, 80)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Frame(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Frame() error = %v, want context.Canceled", err)
	}
}

func TestFileSource_Frame(t *testing.T) {
	// Render a real JPEG fixture with the pattern source.
	fixture, err := NewPatternSource(64, 48, 80).Frame(context.Background())
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.jpg")
	if err := os.WriteFile(path, fixture.Data, 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	src := NewFileSource(path)
	frame, err := src.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if !bytes.Equal(frame.Data, fixture.Data) {
		t.Error("frame data differs from file contents")
	}
	if frame.Format != "image/jpeg" {
		t.Errorf("Format = %q, want image/jpeg", frame.Format)
	}
}

func TestFileSource_Missing(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.jpg"))

	if _, err := src.Frame(context.Background()); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Frame() error = %v, want ErrCaptureFailed", err)
	}
}

func TestFileSource_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jpg")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	src := NewFileSource(path)
	if _, err := src.Frame(context.Background()); !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("Frame() error = %v, want ErrCaptureFailed", err)
	}
}
