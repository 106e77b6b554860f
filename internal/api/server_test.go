package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FlorianBr/ESP32Cam/internal/camera"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/logging"
)

// fakeSource returns a fixed frame or a fixed error.
type fakeSource struct {
	data []byte
	err  error
}

func (f *fakeSource) Frame(ctx context.Context) (*camera.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &camera.Frame{
		Data:       f.data,
		Format:     "image/jpeg",
		CapturedAt: time.Now().UTC(),
	}, nil
}

type fixedConn bool

func (c fixedConn) IsConnected() bool { return bool(c) }

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

func testServer(t *testing.T, src camera.Source) *Server {
	t.Helper()
	s, err := New(Deps{
		Config:  config.HTTPConfig{},
		Logger:  testLogger(),
		Camera:  src,
		Uplink:  fixedConn(true),
		Broker:  fixedConn(false),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{Camera: &fakeSource{}}); err == nil {
		t.Error("New() without logger: error = nil, want error")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without camera: error = nil, want error")
	}
}

func TestSnapshot(t *testing.T) {
	jpegData := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46}
	s := testServer(t, &fakeSource{data: jpegData})

	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "inline; filename=capture.jpg" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), jpegData) {
		t.Error("body differs from frame data")
	}
}

func TestSnapshot_CaptureFailure(t *testing.T) {
	s := testServer(t, &fakeSource{err: errors.New("sensor timeout")})

	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var apiErr Error
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if apiErr.Code != ErrCodeInternal {
		t.Errorf("error code = %q, want %q", apiErr.Code, ErrCodeInternal)
	}
}

func TestStream(t *testing.T) {
	jpegData := []byte{0xff, 0xd8, 0xff, 0xd9}
	s := testServer(t, &fakeSource{data: jpegData})

	srv := httptest.NewServer(s.buildRouter())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "multipart/x-mixed-replace") || !strings.Contains(ct, streamBoundary) {
		t.Fatalf("Content-Type = %q, want multipart with stream boundary", ct)
	}

	// Read two parts, then hang up like a viewer would.
	reader := multipart.NewReader(bufio.NewReader(resp.Body), streamBoundary)
	for i := 0; i < 2; i++ {
		part, err := reader.NextPart()
		if err != nil {
			t.Fatalf("reading part %d: %v", i, err)
		}
		if got := part.Header.Get("Content-Type"); got != "image/jpeg" {
			t.Errorf("part %d Content-Type = %q, want image/jpeg", i, got)
		}
		var body bytes.Buffer
		if _, err := body.ReadFrom(part); err != nil {
			t.Fatalf("reading part %d body: %v", i, err)
		}
		if !bytes.Equal(body.Bytes(), jpegData) {
			t.Errorf("part %d body differs from frame data", i)
		}
	}
}

func TestStream_CaptureFailureEndsStream(t *testing.T) {
	s := testServer(t, &fakeSource{err: errors.New("sensor timeout")})

	srv := httptest.NewServer(s.buildRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream")
	if err != nil {
		t.Fatalf("GET /stream: %v", err)
	}
	defer resp.Body.Close()

	// The stream ends immediately; the body drains without frames.
	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("draining body: %v", err)
	}
	if bytes.Contains(body.Bytes(), []byte("image/jpeg")) {
		t.Error("stream contained a frame despite capture failure")
	}
}

func TestHealth(t *testing.T) {
	s := testServer(t, &fakeSource{data: []byte{0xff}})
	s.started = time.Now().Add(-90 * time.Second)

	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("status = %v, want ok", health["status"])
	}
	if health["version"] != "test" {
		t.Errorf("version = %v, want test", health["version"])
	}
	if health["uplink_connected"] != true {
		t.Errorf("uplink_connected = %v, want true", health["uplink_connected"])
	}
	if health["broker_connected"] != false {
		t.Errorf("broker_connected = %v, want false", health["broker_connected"])
	}
	if uptime, ok := health["uptime_seconds"].(float64); !ok || uptime < 90 {
		t.Errorf("uptime_seconds = %v, want >= 90", health["uptime_seconds"])
	}
}

func TestRequestID(t *testing.T) {
	s := testServer(t, &fakeSource{data: []byte{0xff}})
	router := s.buildRouter()

	// Generated when absent.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set on response")
	}

	// Echoed when provided.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestStartClose(t *testing.T) {
	s := testServer(t, &fakeSource{data: []byte{0xff}})
	s.cfg.Host = "127.0.0.1"
	s.cfg.Port = 0 // ephemeral; Start ignores bind errors, Close still works

	if err := s.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start: error = nil, want error")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start: error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
