package camera

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileSource reads a JPEG file on every capture. Pointing it at a snapshot
// file refreshed by an external capture pipeline (v4l2, ffmpeg) turns the
// node into a thin relay.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the JPEG at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Frame reads the file. A missing or unreadable file is a capture failure.
func (s *FileSource) Frame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCaptureFailed, s.path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCaptureFailed, s.path)
	}

	return &Frame{
		Data:       data,
		Format:     "image/jpeg",
		CapturedAt: time.Now().UTC(),
	}, nil
}
