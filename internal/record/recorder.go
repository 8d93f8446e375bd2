// Package record owns the microphone capture session: fragment
// accumulation while recording and the finalize step that concatenates
// fragments into one raw-captured artifact.
package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"tonetrace/internal/domain"
	"tonetrace/internal/ports"
)

// RawMIME is the declared media type of the raw-captured container.
const RawMIME = "audio/ogg"

var ErrSessionActive = errors.New("a recording session is already active")

// FinalizeResult is delivered once a stopped session has been drained.
// Artifact is empty when no audio data arrived before stop.
type FinalizeResult struct {
	SessionID uuid.UUID
	Artifact  domain.Artifact
	Err       error
}

// Recorder drives at most one capture session at a time.
type Recorder struct {
	device ports.CaptureDevice
	cfg    ports.CaptureConfig
	log    *slog.Logger

	mu      sync.Mutex
	current *session
}

type session struct {
	id      uuid.UUID
	capture ports.CaptureSession

	chunkMu sync.Mutex
	chunks  [][]byte
	readErr error

	pumpDone chan struct{}
}

func NewRecorder(device ports.CaptureDevice, cfg ports.CaptureConfig, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		device: device,
		cfg:    cfg,
		log:    logger.With("component", "record"),
	}
}

// Start acquires the device and begins accumulating fragments as they
// arrive. It returns once recording is underway; it does not wait for
// the session to finish. A second Start while a session is active
// fails with ErrSessionActive and acquires nothing.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return ErrSessionActive
	}
	r.mu.Unlock()

	capture, err := r.device.Start(ctx, r.cfg)
	if err != nil {
		return fmt.Errorf("acquire capture device: %w", err)
	}

	active := &session{
		id:       uuid.New(),
		capture:  capture,
		pumpDone: make(chan struct{}),
	}

	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		_ = capture.Stop()
		return ErrSessionActive
	}
	r.current = active
	r.mu.Unlock()

	go active.pump()

	r.log.Info("recording started", "session", active.id)
	return nil
}

// Stop signals the device to finalize and returns a channel that
// delivers the finalize result once all fragments are drained and the
// device is released. The artifact is only available through that
// channel; Stop itself returns immediately. When no session is active,
// Stop is a no-op and reports ok=false.
func (r *Recorder) Stop() (<-chan FinalizeResult, bool) {
	r.mu.Lock()
	active := r.current
	r.current = nil
	r.mu.Unlock()

	if active == nil {
		return nil, false
	}

	done := make(chan FinalizeResult, 1)
	go func() {
		done <- r.finalize(active)
	}()
	return done, true
}

// Active reports whether a capture session is currently running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// finalize is the single continuation run after stop: release the
// device, wait out the fragment pump, and concatenate what arrived.
func (r *Recorder) finalize(active *session) FinalizeResult {
	stopErr := active.capture.Stop()
	<-active.pumpDone
	_ = active.capture.Close()

	active.chunkMu.Lock()
	chunks := active.chunks
	readErr := active.readErr
	active.chunkMu.Unlock()

	result := FinalizeResult{SessionID: active.id}
	switch {
	case readErr != nil:
		result.Err = fmt.Errorf("capture stream: %w", readErr)
	case stopErr != nil:
		result.Err = fmt.Errorf("release capture device: %w", stopErr)
	case len(chunks) == 0:
		// Stop before any data arrived: no artifact, nothing downstream.
		r.log.Info("recording finalized with no audio", "session", active.id)
	default:
		result.Artifact = domain.Artifact{Data: bytes.Join(chunks, nil), MIME: RawMIME}
		r.log.Info("recording finalized",
			"session", active.id,
			"fragments", len(chunks),
			"bytes", len(result.Artifact.Data),
		)
	}
	return result
}

// pump appends fragments to the session as the device pushes them.
func (s *session) pump() {
	defer close(s.pumpDone)

	buf := make([]byte, 4096)
	for {
		n, err := s.capture.Read(buf)
		if n > 0 {
			fragment := append([]byte(nil), buf[:n]...)
			s.chunkMu.Lock()
			s.chunks = append(s.chunks, fragment)
			s.chunkMu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				s.chunkMu.Lock()
				s.readErr = err
				s.chunkMu.Unlock()
			}
			return
		}
	}
}
