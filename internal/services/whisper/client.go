// Package whisper calls a local Whisper transcription server over HTTP.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediadigest/internal/config"
	"mediadigest/internal/services"
)

const (
	defaultTimeout = 30 * time.Minute
	transcribePath = "/transcribe"
)

// Client transcribes audio files into text with timed segments.
type Client interface {
	Transcribe(ctx context.Context, audioPath string) (Transcription, error)
}

// Transcription is the parsed server response.
type Transcription struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Segment is one timed span of the transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// HTTPClient talks to the transcription server configured in [config.Whisper].
type HTTPClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// Option customizes a client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// NewHTTPClient constructs a client for the transcription server.
func NewHTTPClient(cfg config.Whisper, opts ...Option) *HTTPClient {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		model:   strings.TrimSpace(cfg.Model),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe uploads the audio file and returns the structured transcript.
func (c *HTTPClient) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	var empty Transcription
	if c.baseURL == "" {
		return empty, services.Wrap(services.ErrValidation, "transcribe", "configure", "whisper url not configured", nil)
	}
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return empty, services.Wrap(services.ErrValidation, "transcribe", "open audio", "empty audio path", nil)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return empty, fmt.Errorf("whisper client: open audio: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return empty, fmt.Errorf("whisper client: write model field: %w", err)
		}
	}
	field, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return empty, fmt.Errorf("whisper client: create file field: %w", err)
	}
	if _, err := io.Copy(field, file); err != nil {
		return empty, fmt.Errorf("whisper client: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return empty, fmt.Errorf("whisper client: close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribePath, body)
	if err != nil {
		return empty, fmt.Errorf("whisper client: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(request)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "transcribe", "http request", "transcription server unreachable", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("whisper client: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return empty, &services.HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	var parsed Transcription
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return empty, fmt.Errorf("whisper client: decode response: %w", err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return empty, services.Wrap(services.ErrExternalTool, "transcribe", "decode response", "server returned empty transcript", nil)
	}
	return parsed, nil
}
