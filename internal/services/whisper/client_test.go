package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mediadigest/internal/config"
	"mediadigest/internal/services"
)

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.mp3")
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeUploadsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "base" {
			t.Errorf("model field = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "episode.mp3" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake audio bytes" {
			t.Errorf("uploaded bytes = %q", data)
		}
		_, _ = w.Write([]byte(`{
			"text": "hello world",
			"language": "en",
			"duration": 12.5,
			"segments": [{"start": 0, "end": 2.5, "text": "hello world"}]
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(config.Whisper{URL: server.URL, Model: "base"})
	result, err := client.Transcribe(context.Background(), writeAudioFile(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello world" || result.Language != "en" {
		t.Fatalf("unexpected transcription: %+v", result)
	}
	if len(result.Segments) != 1 || result.Segments[0].End != 2.5 {
		t.Fatalf("segments = %+v", result.Segments)
	}
}

func TestTranscribeServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(config.Whisper{URL: server.URL})
	_, err := client.Transcribe(context.Background(), writeAudioFile(t))
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *services.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want HTTPStatusError 503", err)
	}
	if !services.Retryable(err) {
		t.Fatal("503 must classify as retryable")
	}
}

func TestTranscribeRejectsEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": "  "}`))
	}))
	defer server.Close()

	client := NewHTTPClient(config.Whisper{URL: server.URL})
	if _, err := client.Transcribe(context.Background(), writeAudioFile(t)); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestTranscribeRequiresConfiguredURL(t *testing.T) {
	client := NewHTTPClient(config.Whisper{})
	_, err := client.Transcribe(context.Background(), writeAudioFile(t))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := NewHTTPClient(config.Whisper{URL: "http://unused"})
	if _, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
