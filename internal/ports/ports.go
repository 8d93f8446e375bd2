package ports

import (
	"context"
	"errors"
	"io"

	"tonetrace/internal/domain"
)

// ErrDeviceDenied indicates microphone access was refused or the input
// device is unavailable. Capture devices wrap it so callers can tell a
// denied permission from a mid-session failure.
var ErrDeviceDenied = errors.New("capture device access denied")

// CaptureConfig describes how the microphone should be captured.
type CaptureConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// CaptureSession is a live capture session. Reads deliver container
// fragments as the device produces them; Stop finalizes the stream and
// is safe to call more than once.
type CaptureSession interface {
	io.ReadCloser
	Stop() error
}

// CaptureDevice acquires the microphone and opens capture sessions.
// Start may block while access is being granted.
type CaptureDevice interface {
	Start(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// ConversionEngine converts raw captured audio into the canonical
// analysis format. Load is memoized; only the first call initializes
// the engine.
type ConversionEngine interface {
	Load(ctx context.Context) error
	Convert(ctx context.Context, raw domain.Artifact) (domain.Artifact, error)
}

// PitchAnalyzer uploads canonical audio to the remote analysis service
// and returns the normalized pitch series.
type PitchAnalyzer interface {
	Analyze(ctx context.Context, canonical domain.Artifact) (domain.PitchSeries, error)
}

// SpeechSynthesizer submits text plus a caller-supplied credential to
// the remote text-to-speech service and returns playable audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, credential string) (domain.Artifact, error)
}

// WaveformWidget renders a playable audio source until destroyed.
type WaveformWidget interface {
	Destroy()
}

// PitchPlotWidget renders a pitch series until destroyed.
type PitchPlotWidget interface {
	Destroy()
}

// WidgetFactory constructs view widgets against the data they render.
// Callers destroy the previous widget before creating a replacement.
type WidgetFactory interface {
	NewWaveform(audio domain.Artifact) WaveformWidget
	NewPitchPlot(series domain.PitchSeries) PitchPlotWidget
}

// UISink emits backend state and errors to the UI.
type UISink interface {
	StateChanged(state domain.UIState, reason domain.StateReason)
	SpeechBusyChanged(busy bool)
	PipelineError(code domain.ErrorCode, detail string)
}
