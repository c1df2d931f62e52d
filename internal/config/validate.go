package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("MEDIADIGEST_LLM_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.Whisper.URL = strings.TrimSpace(c.Whisper.URL)
	if c.Whisper.URL == "" {
		c.Whisper.URL = defaultWhisperURL
	}
	c.Export.GitRemote = strings.TrimSpace(c.Export.GitRemote)
	if c.Export.GitRemote == "" {
		c.Export.GitRemote = defaultGitRemote
	}
	c.Export.GitBranch = strings.TrimSpace(c.Export.GitBranch)
	if c.Export.GitBranch == "" {
		c.Export.GitBranch = defaultGitBranch
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.data_dir", &c.Paths.DataDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.audio_dir", &c.Paths.AudioDir},
		{"paths.transcript_dir", &c.Paths.TranscriptDir},
		{"paths.newsletter_dir", &c.Paths.NewsletterDir},
		{"paths.newsletter_drop_dir", &c.Paths.NewsletterDropDir},
		{"podcasts.opml_path", &c.Podcasts.OPMLPath},
		{"export.vault_dir", &c.Export.VaultDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Export.VaultDir) == "" {
		return errors.New("export.vault_dir must be set")
	}
	if strings.ContainsAny(c.Export.OutputDir, `\:`) {
		return fmt.Errorf("export.output_dir %q must be a plain relative directory", c.Export.OutputDir)
	}
	if c.Pipeline.ReclaimAfterMinutes < 0 {
		return errors.New("pipeline.reclaim_after_minutes must not be negative")
	}
	if c.Pipeline.DownloadRetries < 1 {
		return errors.New("pipeline.download_retries must be at least 1")
	}
	if c.Pipeline.DownloadBackoffSecs < 0 {
		return errors.New("pipeline.download_backoff_seconds must not be negative")
	}
	if c.Whisper.TimeoutSeconds < 0 || c.LLM.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds values must not be negative")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
