package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tonetrace/internal/ports"
)

func TestFFmpegCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'OggS'\nsleep 2\n")
	capture := NewFFmpegCapture(script)

	session, err := capture.Start(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected container bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "OggS") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestFFmpegCaptureStopIsIdempotent(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'OggS'\nsleep 2\n")
	capture := NewFFmpegCapture(script)

	session, err := capture.Start(context.Background(), ports.CaptureConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	first := session.Stop()
	second := session.Stop()
	if !errors.Is(second, first) && second != first {
		t.Fatalf("repeated stop must return the same outcome: %v vs %v", first, second)
	}
	if err := session.Close(); err != first {
		t.Fatalf("close must defer to stop outcome: %v", err)
	}
}

func TestFFmpegCaptureEarlyExitIsDeviceDenied(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'cannot open device' 1>&2\nexit 1\n")
	capture := NewFFmpegCapture(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.CaptureConfig{})
	if !errors.Is(err, ports.ErrDeviceDenied) {
		t.Fatalf("expected ErrDeviceDenied, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot open device") {
		t.Fatalf("stderr detail lost: %v", err)
	}
}

func TestCaptureArgsDefaults(t *testing.T) {
	t.Parallel()

	args := strings.Join(captureArgs(ports.CaptureConfig{}), " ")
	for _, want := range []string{"-f pulse", "-i default", "-ar 48000", "-ac 1", "-c:a libopus", "-f ogg"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args: %s", want, args)
		}
	}
}

func writeScript(t *testing.T, name string, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script failed: %v", err)
	}
	return path
}
