// Package analysis uploads canonical audio to the remote pitch
// analysis service and normalizes the response into a pitch series.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"tonetrace/internal/domain"
)

var ErrMalformedResponse = errors.New("analysis response has an invalid format")

// Client talks to the pitch analysis endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     logger.With("component", "analysis"),
	}
}

// Analyze posts the canonical artifact as a multipart upload and
// returns the pitch series. A non-success status or a body that is not
// a well-formed series yields an error and an empty series; a partial
// series is never returned.
func (c *Client) Analyze(ctx context.Context, canonical domain.Artifact) (domain.PitchSeries, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(canonical.Data); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze_pitch", &body)
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("analysis failed: status %d: %s", resp.StatusCode, errorBody(resp.Body))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}

	series, err := parseSeries(payload)
	if err != nil {
		return nil, err
	}

	c.log.Debug("pitch analysis complete",
		"samples", len(series),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return series, nil
}

// parseSeries accepts only a JSON array where every element carries a
// numeric time and frequency. Anything else rejects the whole body.
func parseSeries(payload []byte) (domain.PitchSeries, error) {
	var points []struct {
		Time      *float64 `json:"time"`
		Frequency *float64 `json:"frequency"`
	}

	if err := json.Unmarshal(payload, &points); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	series := make(domain.PitchSeries, 0, len(points))
	previous := 0.0
	for i, p := range points {
		if p.Time == nil || p.Frequency == nil {
			return nil, fmt.Errorf("%w: element %d is missing time or frequency", ErrMalformedResponse, i)
		}
		if *p.Time < 0 || *p.Frequency <= 0 {
			return nil, fmt.Errorf("%w: element %d is out of range", ErrMalformedResponse, i)
		}
		if *p.Time < previous {
			return nil, fmt.Errorf("%w: element %d is out of time order", ErrMalformedResponse, i)
		}
		previous = *p.Time
		series = append(series, domain.PitchSample{Time: *p.Time, Frequency: *p.Frequency})
	}
	return series, nil
}

// The backend wraps failures as {"error": "..."}.
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
