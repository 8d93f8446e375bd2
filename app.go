package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"tonetrace/internal/bootstrap"
	"tonetrace/internal/config"
	"tonetrace/internal/domain"
	"tonetrace/internal/ports"
	"tonetrace/internal/usecase"
)

const (
	eventState    = "tonetrace:state"
	eventBusy     = "tonetrace:busy"
	eventError    = "tonetrace:error"
	eventWaveform = "tonetrace:waveform"
	eventPlot     = "tonetrace:pitch"
)

// App is the Wails application root. It implements ports.UISink and
// bridges widget lifecycle to the frontend over runtime events.
type App struct {
	ctx context.Context

	coordinator *usecase.Coordinator
	cfg         config.Config
	bootErr     error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &eventWidgets{app: a})
	if err != nil {
		a.bootErr = err
		a.PipelineError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.coordinator = services.Coordinator
	a.StateChanged(domain.UIStateReady, domain.ReasonStartup)
}

// StartRecording arms the microphone and begins recording.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.coordinator.StartRecording(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.coordinator.Status(), nil
}

// StopRecording finalizes the capture and runs transcode and analysis.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.coordinator.StopRecording(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.coordinator.Status(), nil
}

// GenerateSpeech submits text plus the user-supplied credential to the
// text-to-speech service.
func (a *App) GenerateSpeech(text string, credential string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.coordinator.GenerateSpeech(a.ctx, text, credential)
}

// GetStatus returns the current pipeline status.
func (a *App) GetStatus() domain.Status {
	if a.coordinator == nil {
		status := domain.Status{State: domain.UIStateReady}
		if a.bootErr != nil {
			status.Message = a.bootErr.Error()
		}
		return status
	}
	return a.coordinator.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"analysisBase": a.cfg.Analysis.BaseURL,
		"speechURL":    a.cfg.Speech.Endpoint,
		"audioInput":   a.cfg.Audio.InputDevice,
		"audioFormat":  a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.coordinator == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StateChanged emits recording affordance updates to the frontend.
func (a *App) StateChanged(state domain.UIState, reason domain.StateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

// SpeechBusyChanged emits the speech busy flag to the frontend.
func (a *App) SpeechBusyChanged(busy bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventBusy, map[string]bool{"busy": busy})
}

// PipelineError emits user-visible errors to the frontend.
func (a *App) PipelineError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateReasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonStartup:
		return "Ready"
	case domain.ReasonPermissionRequested:
		return "Requesting microphone access"
	case domain.ReasonRecordingStarted:
		return "Recording"
	case domain.ReasonFinalizing:
		return "Recording stopped. Analyzing..."
	case domain.ReasonNoAudioCaptured:
		return "No audio captured"
	case domain.ReasonAnalysisComplete:
		return "Pitch analysis complete"
	case domain.ReasonPermissionDenied:
		return "Microphone access denied"
	case domain.ReasonCaptureFailed:
		return "Recording failed"
	case domain.ReasonTranscodeFailed:
		return "Audio conversion failed"
	case domain.ReasonAnalysisFailed:
		return "Pitch analysis failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Microphone access denied"
	case domain.ErrorCodeCapture:
		return "Recording failed"
	case domain.ErrorCodeTranscode:
		return "Audio conversion failed"
	case domain.ErrorCodeAnalysis:
		return "Pitch analysis failed"
	case domain.ErrorCodeSpeech:
		return "Speech generation failed"
	case domain.ErrorCodeValidation:
		return "Enter both text and an API credential"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// eventWidgets realizes view widgets as frontend events: create
// carries the full payload, destroy tells the frontend to tear the
// widget down before any replacement is created.
type eventWidgets struct {
	app *App
}

func (w *eventWidgets) NewWaveform(audio domain.Artifact) ports.WaveformWidget {
	w.emit(eventWaveform, map[string]any{
		"action": "create",
		"mime":   audio.MIME,
		"data":   base64.StdEncoding.EncodeToString(audio.Data),
	})
	return &eventWidget{app: w.app, event: eventWaveform}
}

func (w *eventWidgets) NewPitchPlot(series domain.PitchSeries) ports.PitchPlotWidget {
	w.emit(eventPlot, map[string]any{
		"action": "create",
		"series": series,
	})
	return &eventWidget{app: w.app, event: eventPlot}
}

func (w *eventWidgets) emit(event string, payload map[string]any) {
	if w.app.ctx == nil {
		return
	}
	runtime.EventsEmit(w.app.ctx, event, payload)
}

type eventWidget struct {
	app   *App
	event string
}

func (w *eventWidget) Destroy() {
	if w.app.ctx == nil {
		return
	}
	runtime.EventsEmit(w.app.ctx, w.event, map[string]any{"action": "destroy"})
}
