package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediadigest/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	// Load normalizes before validating; mimic that for the raw defaults.
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Export.OutputDir != "digest" {
		t.Fatalf("unexpected default output dir: %q", cfg.Export.OutputDir)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		"[export]",
		`vault_dir = "~/my-vault"`,
		"[pipeline]",
		"download_retries = 5",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Pipeline.DownloadRetries != 5 {
		t.Fatalf("expected download_retries override, got %d", cfg.Pipeline.DownloadRetries)
	}
	if strings.HasPrefix(cfg.Export.VaultDir, "~") {
		t.Fatalf("expected vault dir expansion, got %q", cfg.Export.VaultDir)
	}
	if !filepath.IsAbs(cfg.Paths.AudioDir) {
		t.Fatalf("expected absolute audio dir, got %q", cfg.Paths.AudioDir)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[pipeline]\ndownload_retries = 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for download_retries = 0")
	}
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"yaml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.AudioDir = filepath.Join(dir, "audio")
	cfg.Paths.TranscriptDir = filepath.Join(dir, "transcripts")
	cfg.Paths.NewsletterDir = filepath.Join(dir, "newsletters")
	cfg.Export.VaultDir = filepath.Join(dir, "vault")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, sub := range []string{"data", "logs", "audio", "transcripts", "newsletters", "vault"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", sub, err)
		}
	}
	if got := cfg.DatabasePath(); got != filepath.Join(dir, "data", "mediadigest.db") {
		t.Fatalf("unexpected database path: %q", got)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
