package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tonetrace/internal/domain"
	"tonetrace/internal/ports"
	"tonetrace/internal/record"
)

var (
	ErrNotReady          = errors.New("a recording is already in progress")
	ErrNoActiveRecording = errors.New("no active recording session")
	ErrMissingInput      = errors.New("text and credential are both required")
)

// Coordinator owns the UI-facing pipeline state: the recording
// affordance state machine, the playable audio slot, the pitch series,
// and the speech busy flag. It drives the waveform and plot widgets
// whenever their inputs change.
type Coordinator struct {
	recorder *record.Recorder
	engine   ports.ConversionEngine
	analyzer ports.PitchAnalyzer
	speech   ports.SpeechSynthesizer
	ui       ports.UISink
	widgets  ports.WidgetFactory
	log      *slog.Logger

	mu         sync.Mutex
	state      domain.UIState
	playable   domain.Artifact
	series     domain.PitchSeries
	speechBusy bool
	waveform   ports.WaveformWidget
	plot       ports.PitchPlotWidget
}

func NewCoordinator(
	recorder *record.Recorder,
	engine ports.ConversionEngine,
	analyzer ports.PitchAnalyzer,
	speech ports.SpeechSynthesizer,
	ui ports.UISink,
	widgets ports.WidgetFactory,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		recorder: recorder,
		engine:   engine,
		analyzer: analyzer,
		speech:   speech,
		ui:       ui,
		widgets:  widgets,
		log:      logger.With("component", "coordinator"),
		state:    domain.UIStateReady,
	}
}

// StartRecording arms the microphone and begins a capture session.
// Rejected unless the pipeline is Ready, so a second recording can
// never start while one is armed, recording, or finalizing.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.UIStateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.state = domain.UIStateArmed
	c.mu.Unlock()
	c.ui.StateChanged(domain.UIStateArmed, domain.ReasonPermissionRequested)

	if err := c.recorder.Start(ctx); err != nil {
		code := domain.ErrorCodeCapture
		reason := domain.ReasonCaptureFailed
		if errors.Is(err, ports.ErrDeviceDenied) {
			code = domain.ErrorCodePermissionDenied
			reason = domain.ReasonPermissionDenied
		}
		c.log.Error("recording start failed", "error", err)
		c.ui.PipelineError(code, err.Error())
		c.setState(domain.UIStateReady, reason)
		return err
	}

	c.setState(domain.UIStateRecording, domain.ReasonRecordingStarted)
	return nil
}

// StopRecording finalizes the capture and runs the pipeline in fixed
// order: expose the raw artifact as playable audio, transcode, analyze,
// expose the pitch series. Each step runs only if the previous one
// produced a non-empty artifact or series. The affordance returns to
// Ready on every path.
func (c *Coordinator) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.state != domain.UIStateRecording {
		c.mu.Unlock()
		return ErrNoActiveRecording
	}
	c.state = domain.UIStateFinalizing
	c.mu.Unlock()
	c.ui.StateChanged(domain.UIStateFinalizing, domain.ReasonFinalizing)

	done, ok := c.recorder.Stop()
	if !ok {
		c.setState(domain.UIStateReady, domain.ReasonNoAudioCaptured)
		return ErrNoActiveRecording
	}

	result := <-done
	if result.Err != nil {
		c.log.Error("capture finalize failed", "session", result.SessionID, "error", result.Err)
		c.ui.PipelineError(domain.ErrorCodeCapture, result.Err.Error())
		c.setState(domain.UIStateReady, domain.ReasonCaptureFailed)
		return result.Err
	}
	if result.Artifact.Empty() {
		c.setState(domain.UIStateReady, domain.ReasonNoAudioCaptured)
		return nil
	}

	return c.finalize(ctx, result.Artifact)
}

func (c *Coordinator) finalize(ctx context.Context, raw domain.Artifact) error {
	c.setPlayable(raw)

	if err := c.engine.Load(ctx); err != nil {
		return c.failFinalize(domain.ErrorCodeTranscode, domain.ReasonTranscodeFailed, err)
	}
	canonical, err := c.engine.Convert(ctx, raw)
	if err != nil {
		return c.failFinalize(domain.ErrorCodeTranscode, domain.ReasonTranscodeFailed, err)
	}

	series, err := c.analyzer.Analyze(ctx, canonical)
	if err != nil {
		// A stale series must not stay on screen next to audio it
		// does not describe.
		c.setSeries(nil)
		return c.failFinalize(domain.ErrorCodeAnalysis, domain.ReasonAnalysisFailed, err)
	}

	c.setSeries(series)
	c.setState(domain.UIStateReady, domain.ReasonAnalysisComplete)
	return nil
}

func (c *Coordinator) failFinalize(code domain.ErrorCode, reason domain.StateReason, err error) error {
	c.log.Error("pipeline stage failed", "stage", string(code), "error", err)
	c.ui.PipelineError(code, err.Error())
	c.setState(domain.UIStateReady, reason)
	return err
}

// GenerateSpeech submits text and credential to the speech service and
// replaces the playable audio with the result. The pitch series is
// never touched. The busy flag clears on success and failure alike.
func (c *Coordinator) GenerateSpeech(ctx context.Context, text string, credential string) error {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(credential) == "" {
		c.ui.PipelineError(domain.ErrorCodeValidation, ErrMissingInput.Error())
		return ErrMissingInput
	}

	c.setSpeechBusy(true)
	defer c.setSpeechBusy(false)

	artifact, err := c.speech.Synthesize(ctx, text, credential)
	if err != nil {
		c.log.Error("speech synthesis failed", "error", err)
		c.ui.PipelineError(domain.ErrorCodeSpeech, err.Error())
		return fmt.Errorf("generate speech: %w", err)
	}

	c.setPlayable(artifact)
	return nil
}

// Status returns the current pipeline status.
func (c *Coordinator) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{State: c.state, SpeechBusy: c.speechBusy}
}

func (c *Coordinator) setState(state domain.UIState, reason domain.StateReason) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.ui.StateChanged(state, reason)
}

func (c *Coordinator) setSpeechBusy(busy bool) {
	c.mu.Lock()
	c.speechBusy = busy
	c.mu.Unlock()
	c.ui.SpeechBusyChanged(busy)
}

// setPlayable replaces the playable audio slot. The previous waveform
// widget is torn down before the replacement is constructed; a stale
// widget must never render alongside a new source.
func (c *Coordinator) setPlayable(audio domain.Artifact) {
	c.mu.Lock()
	previous := c.waveform
	c.waveform = nil
	c.playable = audio
	c.mu.Unlock()

	if previous != nil {
		previous.Destroy()
	}
	widget := c.widgets.NewWaveform(audio)

	c.mu.Lock()
	c.waveform = widget
	c.mu.Unlock()
}

// setSeries replaces the pitch series. The plot receives the full
// series as one update; an empty series clears the plot entirely.
func (c *Coordinator) setSeries(series domain.PitchSeries) {
	c.mu.Lock()
	previous := c.plot
	c.plot = nil
	c.series = series
	c.mu.Unlock()

	if previous != nil {
		previous.Destroy()
	}
	if len(series) == 0 {
		return
	}
	widget := c.widgets.NewPitchPlot(series)

	c.mu.Lock()
	c.plot = widget
	c.mu.Unlock()
}
