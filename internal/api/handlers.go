package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// streamBoundary is the multipart boundary of the motion-JPEG stream. Kept
// byte-for-byte from the firmware so existing viewers keep working.
const streamBoundary = "123456789000000000000987654321"

// streamFrameInterval paces the stream when the source captures faster
// than viewers can consume.
const streamFrameInterval = 100 * time.Millisecond

// handleSnapshot serves a single JPEG frame.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	frame, err := s.camera.Frame(r.Context())
	if err != nil {
		s.logger.Error("snapshot capture failed", "error", err)
		writeInternalError(w, "capture failed")
		return
	}

	w.Header().Set("Content-Type", frame.Format)
	w.Header().Set("Content-Disposition", "inline; filename=capture.jpg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(frame.Data)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write; client may have gone away
	w.Write(frame.Data)
}

// handleStream serves frames as multipart/x-mixed-replace until the client
// disconnects. Capture errors end the stream; the client reconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace;boundary="+streamBoundary)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	ticker := time.NewTicker(streamFrameInterval)
	defer ticker.Stop()

	for {
		frame, err := s.camera.Frame(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("stream capture failed", "error", err)
			}
			return
		}

		if _, err := fmt.Fprintf(w, "\r\n--%s\r\n", streamBoundary); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "Content-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame.Data)); err != nil {
			return
		}
		if _, err := w.Write(frame.Data); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
