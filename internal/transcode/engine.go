// Package transcode converts raw-captured audio containers into the
// canonical analysis format with a lazily loaded ffmpeg engine.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"tonetrace/internal/domain"
)

// CanonicalMIME is the declared media type of converted artifacts.
const CanonicalMIME = "audio/wav"

var (
	ErrEngineNotLoaded = errors.New("conversion engine is not loaded")
	ErrNoOutput        = errors.New("conversion produced no output")
)

// Config controls the conversion engine.
type Config struct {
	// Command is the ffmpeg binary name or path.
	Command string
	// SampleRate of the canonical output; 16 kHz mono pcm_s16le WAV.
	SampleRate int
	// Locate resolves Command to an executable path. Defaults to
	// exec.LookPath; tests substitute a counting locator.
	Locate func(name string) (string, error)
}

// Engine is the process-wide conversion engine handle. Load runs its
// expensive initialization exactly once; the handle is then reused for
// every conversion until the process exits. Conversions are serialized
// because the engine's virtual files hold one job at a time.
type Engine struct {
	cfg Config
	log *slog.Logger

	loadOnce sync.Once
	loadErr  error
	path     string
	workdir  string
	loaded   atomic.Bool

	convertMu sync.Mutex
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Locate == nil {
		cfg.Locate = exec.LookPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, log: logger.With("component", "transcode")}
}

// Load initializes the engine: it resolves the binary and creates the
// virtual file workspace. Safe to call repeatedly; only the first call
// performs work and later calls observe its outcome.
func (e *Engine) Load(ctx context.Context) error {
	e.loadOnce.Do(func() {
		path, err := e.cfg.Locate(e.cfg.Command)
		if err != nil {
			e.loadErr = fmt.Errorf("locate conversion engine %q: %w", e.cfg.Command, err)
			return
		}

		workdir, err := os.MkdirTemp("", "tonetrace-engine-")
		if err != nil {
			e.loadErr = fmt.Errorf("create engine workspace: %w", err)
			return
		}

		e.path = path
		e.workdir = workdir
		e.loaded.Store(true)
		e.log.Info("conversion engine loaded", "path", path)
	})
	if e.loadErr != nil {
		return e.loadErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Convert writes the raw artifact into the engine's virtual input,
// runs the conversion command targeting canonical WAV, and reads back
// the output. The caller must not upload on error.
func (e *Engine) Convert(ctx context.Context, raw domain.Artifact) (domain.Artifact, error) {
	if !e.loaded.Load() {
		return domain.Artifact{}, ErrEngineNotLoaded
	}
	if raw.Empty() {
		return domain.Artifact{}, fmt.Errorf("convert: %w", ErrNoOutput)
	}

	e.convertMu.Lock()
	defer e.convertMu.Unlock()

	input := filepath.Join(e.workdir, "input.ogg")
	output := filepath.Join(e.workdir, "output.wav")
	defer func() {
		_ = os.Remove(input)
		_ = os.Remove(output)
	}()

	if err := os.WriteFile(input, raw.Data, 0o600); err != nil {
		return domain.Artifact{}, fmt.Errorf("write engine input: %w", err)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", input,
		"-ac", "1",
		"-ar", strconv.Itoa(e.cfg.SampleRate),
		"-c:a", "pcm_s16le",
		output,
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return domain.Artifact{}, fmt.Errorf("conversion command: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("read engine output: %w", ErrNoOutput)
	}
	if len(data) == 0 {
		return domain.Artifact{}, ErrNoOutput
	}

	e.log.Debug("converted recording", "in_bytes", len(raw.Data), "out_bytes", len(data))
	return domain.Artifact{Data: data, MIME: CanonicalMIME}, nil
}
