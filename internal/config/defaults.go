package config

const (
	defaultDataDir             = "~/.local/share/mediadigest"
	defaultLogDir              = "~/.local/share/mediadigest/logs"
	defaultAudioDir            = "~/.local/share/mediadigest/audio"
	defaultTranscriptDir       = "~/.local/share/mediadigest/transcripts"
	defaultNewsletterDir       = "~/.local/share/mediadigest/newsletters"
	defaultNewsletterDropDir   = "~/.local/share/mediadigest/inbox"
	defaultOPMLPath            = "~/.config/mediadigest/podcasts.opml"
	defaultWhisperURL          = "http://127.0.0.1:9090"
	defaultWhisperModel        = "medium"
	defaultWhisperTimeoutSecs  = 1800
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "anthropic/claude-sonnet-4.5"
	defaultLLMTimeoutSecs      = 120
	defaultVaultDir            = "~/vault"
	defaultOutputDir           = "digest"
	defaultGitRemote           = "origin"
	defaultGitBranch           = "main"
	defaultReclaimAfterMinutes = 60
	defaultDownloadRetries     = 3
	defaultDownloadBackoffSecs = 60
	defaultDownloadTimeoutSecs = 600
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:           defaultDataDir,
			LogDir:            defaultLogDir,
			AudioDir:          defaultAudioDir,
			TranscriptDir:     defaultTranscriptDir,
			NewsletterDir:     defaultNewsletterDir,
			NewsletterDropDir: defaultNewsletterDropDir,
		},
		Podcasts: Podcasts{
			OPMLPath: defaultOPMLPath,
		},
		Whisper: Whisper{
			URL:            defaultWhisperURL,
			Model:          defaultWhisperModel,
			TimeoutSeconds: defaultWhisperTimeoutSecs,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSecs,
		},
		Export: Export{
			VaultDir:  defaultVaultDir,
			OutputDir: defaultOutputDir,
			GitRemote: defaultGitRemote,
			GitBranch: defaultGitBranch,
		},
		Pipeline: Pipeline{
			ReclaimAfterMinutes: defaultReclaimAfterMinutes,
			DownloadRetries:     defaultDownloadRetries,
			DownloadBackoffSecs: defaultDownloadBackoffSecs,
			DownloadTimeoutSecs: defaultDownloadTimeoutSecs,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
