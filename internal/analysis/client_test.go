package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tonetrace/internal/domain"
)

func TestAnalyzeSuccess(t *testing.T) {
	t.Parallel()

	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyze_pitch" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "recording.wav" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		uploaded, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"time":0.0,"frequency":120.5},{"time":0.5,"frequency":131.2}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	series, err := client.Analyze(context.Background(), domain.Artifact{Data: []byte("RIFFwav"), MIME: "audio/wav"})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if string(uploaded) != "RIFFwav" {
		t.Fatalf("server received wrong bytes: %q", uploaded)
	}
	want := domain.PitchSeries{
		{Time: 0.0, Frequency: 120.5},
		{Time: 0.5, Frequency: 131.2},
	}
	if len(series) != len(want) {
		t.Fatalf("unexpected series length: %d", len(series))
	}
	for i := range want {
		if series[i] != want[i] {
			t.Fatalf("sample %d: got %+v want %+v", i, series[i], want[i])
		}
	}
}

func TestAnalyzeNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"could not read audio"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	series, err := client.Analyze(context.Background(), domain.Artifact{Data: []byte("x")})
	if err == nil {
		t.Fatalf("expected status error")
	}
	if !strings.Contains(err.Error(), "could not read audio") {
		t.Fatalf("server message lost: %v", err)
	}
	if len(series) != 0 {
		t.Fatalf("series must be empty on failure")
	}
}

func TestAnalyzeMalformedResponses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"missing frequency", `[{"time":0.1},{"time":0.2,"frequency":100}]`},
		{"missing time", `[{"frequency":100}]`},
		{"not an array", `{"time":0.1,"frequency":100}`},
		{"string fields", `[{"time":"0.1","frequency":"100"}]`},
		{"negative time", `[{"time":-0.1,"frequency":100}]`},
		{"zero frequency", `[{"time":0.1,"frequency":0}]`},
		{"time disorder", `[{"time":0.5,"frequency":100},{"time":0.1,"frequency":110}]`},
		{"not json", `pitch data`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second, nil)
			series, err := client.Analyze(context.Background(), domain.Artifact{Data: []byte("x")})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			// Never partial: a bad element rejects the whole body.
			if len(series) != 0 {
				t.Fatalf("expected empty series, got %d samples", len(series))
			}
		})
	}
}

func TestAnalyzeEmptyArrayIsValid(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	series, err := client.Analyze(context.Background(), domain.Artifact{Data: []byte("x")})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(series) != 0 {
		t.Fatalf("expected empty series, got %d", len(series))
	}
}
