// Package speech submits text plus a caller-supplied credential to the
// remote text-to-speech service and returns the synthesized audio.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tonetrace/internal/domain"
)

// DefaultMIME is assumed when the service omits a content type.
const DefaultMIME = "audio/mpeg"

// Client talks to the text-to-speech endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	log      *slog.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
		log:      logger.With("component", "speech"),
	}
}

// Synthesize posts the text and credential and returns the raw audio
// bytes from the response body. The credential passes through
// unchanged and is never logged or stored.
func (c *Client) Synthesize(ctx context.Context, text string, credential string) (domain.Artifact, error) {
	payload, err := json.Marshal(map[string]string{
		"text":       text,
		"credential": credential,
	})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Artifact{}, fmt.Errorf("speech synthesis failed: status %d: %s", resp.StatusCode, errorBody(resp.Body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("read speech response: %w", err)
	}
	if len(audio) == 0 {
		return domain.Artifact{}, fmt.Errorf("speech synthesis returned no audio")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = DefaultMIME
	}

	c.log.Debug("speech synthesized",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return domain.Artifact{Data: audio, MIME: mimeType}, nil
}

func errorBody(r io.Reader) string {
	payload, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(bytes.TrimSpace(payload))
}
