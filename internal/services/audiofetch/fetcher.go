// Package audiofetch downloads episode audio to local disk for
// transcription.
package audiofetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mediadigest/internal/services"
	"mediadigest/internal/textutil"
)

const defaultTimeout = 10 * time.Minute

// Fetcher streams remote audio files into a local directory.
type Fetcher struct {
	dir  string
	http *http.Client
}

// Option customizes a fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.http = client
		}
	}
}

// NewFetcher builds a fetcher that writes into dir.
func NewFetcher(dir string, timeout time.Duration, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fetcher := &Fetcher{
		dir:  dir,
		http: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads audioURL and returns the local file path. The file name is
// derived from the item token so repeated downloads overwrite in place. The
// partial file is removed on failure.
func (f *Fetcher) Fetch(ctx context.Context, token, audioURL string) (string, error) {
	if strings.TrimSpace(audioURL) == "" {
		return "", services.Wrap(services.ErrPrecondition, "download", "fetch audio", "No audio URL", nil)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "download", "fetch audio", "invalid audio URL", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "download", "fetch audio", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &services.HTTPStatusError{StatusCode: resp.StatusCode}
	}

	target := filepath.Join(f.dir,
		textutil.SanitizeToken(token)+audioExtension(audioURL, resp.Header.Get("Content-Type")))
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrTransient, "download", "fetch audio", "stream interrupted", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("close audio file: %w", err)
	}
	return target, nil
}

// audioExtension picks a file extension from the URL path, falling back to
// the response Content-Type, then to .mp3.
func audioExtension(audioURL, contentType string) string {
	if parsed, err := url.Parse(audioURL); err == nil {
		if ext := strings.ToLower(path.Ext(parsed.Path)); validAudioExt(ext) {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "audio/mpeg", "audio/mp3":
			return ".mp3"
		case "audio/mp4", "audio/x-m4a", "audio/m4a":
			return ".m4a"
		case "audio/ogg":
			return ".ogg"
		case "audio/wav", "audio/x-wav":
			return ".wav"
		}
	}
	return ".mp3"
}

func validAudioExt(ext string) bool {
	switch ext {
	case ".mp3", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".flac":
		return true
	}
	return false
}
