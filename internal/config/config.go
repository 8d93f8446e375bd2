package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration. The speech credential is
// deliberately absent: it arrives per-request from the UI and is never
// persisted.
type Config struct {
	Analysis  AnalysisConfig
	Speech    SpeechConfig
	Audio     AudioConfig
	Transcode TranscodeConfig
}

type AnalysisConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SpeechConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type TranscodeConfig struct {
	Command    string
	SampleRate int
}

// Load resolves configuration from an optional .env file, environment
// variables, and defaults.
func Load() (Config, error) {
	// Missing .env is fine; env vars and defaults still apply.
	_ = godotenv.Load()

	cfg := Config{
		Analysis: AnalysisConfig{
			BaseURL: envOrDefault("TONETRACE_ANALYSIS_BASE", "http://127.0.0.1:5000"),
			Timeout: time.Duration(envOrDefaultInt("TONETRACE_HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		Speech: SpeechConfig{
			Endpoint: envOrDefault("TONETRACE_SPEECH_URL", "http://127.0.0.1:5000/api/speech"),
			Timeout:  time.Duration(envOrDefaultInt("TONETRACE_HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("TONETRACE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("TONETRACE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("TONETRACE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("TONETRACE_SAMPLE_RATE", 48000),
			Channels:        envOrDefaultInt("TONETRACE_CHANNELS", 1),
		},
		Transcode: TranscodeConfig{
			Command:    envOrDefault("TONETRACE_FFMPEG_COMMAND", "ffmpeg"),
			SampleRate: envOrDefaultInt("TONETRACE_CANONICAL_SAMPLE_RATE", 16000),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Transcode.SampleRate <= 0 {
		cfg.Transcode.SampleRate = 16000
	}
	if cfg.Analysis.Timeout <= 0 {
		cfg.Analysis.Timeout = 30 * time.Second
	}
	if cfg.Speech.Timeout <= 0 {
		cfg.Speech.Timeout = 30 * time.Second
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
