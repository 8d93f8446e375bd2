package bootstrap

import (
	"tonetrace/internal/analysis"
	"tonetrace/internal/audio"
	"tonetrace/internal/config"
	"tonetrace/internal/log"
	"tonetrace/internal/ports"
	"tonetrace/internal/record"
	"tonetrace/internal/speech"
	"tonetrace/internal/transcode"
	"tonetrace/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Coordinator *usecase.Coordinator
	Config      config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(sink ports.UISink, widgets ports.WidgetFactory) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger := log.L()

	recorder := record.NewRecorder(
		audio.NewFFmpegCapture(cfg.Audio.RecorderCommand),
		ports.CaptureConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		logger,
	)

	coordinator := usecase.NewCoordinator(
		recorder,
		transcode.NewEngine(transcode.Config{
			Command:    cfg.Transcode.Command,
			SampleRate: cfg.Transcode.SampleRate,
		}, logger),
		analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.Timeout, logger),
		speech.NewClient(cfg.Speech.Endpoint, cfg.Speech.Timeout, logger),
		sink,
		widgets,
		logger,
	)

	return Services{Coordinator: coordinator, Config: cfg}, nil
}
