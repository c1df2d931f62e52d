package process

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"time"

	"mediadigest/internal/config"
	"mediadigest/internal/fileutil"
	"mediadigest/internal/logging"
	"mediadigest/internal/services"
	"mediadigest/internal/services/whisper"
	"mediadigest/internal/store"
	"mediadigest/internal/textutil"
)

// AudioStore is the store surface the audio stage needs.
type AudioStore interface {
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)
	ListEpisodesByStatus(ctx context.Context, status store.Status, limit int) ([]*store.Episode, error)
	TransitionEpisode(ctx context.Context, guid string, to store.Status, errorReason string) error
	SaveTranscript(ctx context.Context, transcript *store.Transcript) error
}

// AudioFetcher downloads episode audio and returns the local path.
type AudioFetcher interface {
	Fetch(ctx context.Context, token, audioURL string) (string, error)
}

// AudioStage downloads and transcribes pending podcast episodes.
type AudioStage struct {
	store       AudioStore
	fetcher     AudioFetcher
	transcriber whisper.Client
	cfg         *config.Config
	logger      *slog.Logger
	policy      services.Policy
}

// NewAudioStage wires the audio stage from its collaborators.
func NewAudioStage(st AudioStore, fetcher AudioFetcher, transcriber whisper.Client, cfg *config.Config, logger *slog.Logger) *AudioStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	policy := services.Policy{
		MaxAttempts: cfg.Pipeline.DownloadRetries,
		BaseDelay:   time.Duration(cfg.Pipeline.DownloadBackoffSecs) * time.Second,
	}
	return &AudioStage{
		store:       st,
		fetcher:     fetcher,
		transcriber: transcriber,
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "process-audio"),
		policy:      policy,
	}
}

// Run processes pending episodes, at most limit when limit is positive.
// Items stuck in_progress past the reclaim window are returned to pending
// first.
func (a *AudioStage) Run(ctx context.Context, limit int) (*Report, error) {
	report := &Report{Stage: "process-audio"}

	reclaimed, err := a.store.ReclaimStale(ctx,
		time.Duration(a.cfg.Pipeline.ReclaimAfterMinutes)*time.Minute)
	if err != nil {
		return report, err
	}
	report.Reclaimed = reclaimed
	if reclaimed > 0 {
		a.logger.Info("reclaimed stale items", logging.Int("count", reclaimed))
	}

	episodes, err := a.store.ListEpisodesByStatus(ctx, store.StatusPending, limit)
	if err != nil {
		return report, err
	}

	for _, episode := range episodes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		itemCtx := services.WithStage(services.WithItemID(ctx, episode.GUID), "process-audio")
		logger := logging.WithContext(itemCtx, a.logger)

		if episode.AudioURL == "" {
			// Precondition failure before any work starts. The bare reason
			// goes on the row so the operator can see why it never ran.
			const reason = "No audio URL"
			report.addFailed(episode.GUID, episode.Title, reason)
			logger.Error("episode has no audio URL", logging.String("title", episode.Title))
			if terr := a.store.TransitionEpisode(itemCtx, episode.GUID, store.StatusFailed, reason); terr != nil {
				logger.Error("failed to record failure", logging.Error(terr))
			}
			continue
		}

		if err := a.processEpisode(itemCtx, logger, episode); err != nil {
			report.addFailed(episode.GUID, episode.Title, err.Error())
			logger.Error("episode processing failed", logging.Error(err))
			if terr := a.store.TransitionEpisode(itemCtx, episode.GUID, store.StatusFailed, err.Error()); terr != nil {
				logger.Error("failed to record failure", logging.Error(terr))
			}
			continue
		}
		report.addCompleted(episode.GUID, episode.Title)
		logger.Info("episode transcribed", logging.String("title", episode.Title))
	}
	return report, nil
}

func (a *AudioStage) processEpisode(ctx context.Context, logger *slog.Logger, episode *store.Episode) error {
	if err := a.store.TransitionEpisode(ctx, episode.GUID, store.StatusInProgress, ""); err != nil {
		return err
	}

	var audioPath string
	err := services.Retry(ctx, logger, a.policy, "download audio", func(ctx context.Context) error {
		var fetchErr error
		audioPath, fetchErr = a.fetcher.Fetch(ctx, episode.GUID, episode.AudioURL)
		return fetchErr
	})
	if err != nil {
		return err
	}

	transcription, err := a.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}

	// The blob keeps the full server response, segments and timings included,
	// not just the flattened text that goes in the row.
	blob, err := json.MarshalIndent(transcription, "", "  ")
	if err != nil {
		return err
	}
	transcriptPath := filepath.Join(a.cfg.Paths.TranscriptDir,
		textutil.SanitizeToken(episode.GUID)+".json")
	if err := fileutil.WriteAtomic(transcriptPath, blob); err != nil {
		return err
	}
	if err := a.store.SaveTranscript(ctx, &store.Transcript{
		EpisodeGUID:    episode.GUID,
		TranscriptText: transcription.Text,
		TranscriptPath: transcriptPath,
	}); err != nil {
		return err
	}

	return a.store.TransitionEpisode(ctx, episode.GUID, store.StatusCompleted, "")
}
