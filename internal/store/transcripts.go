package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveTranscript stores the transcript for an episode, replacing any prior
// one. The episode row must already exist.
func (s *Store) SaveTranscript(ctx context.Context, transcript *Transcript) error {
	if transcript == nil {
		return errors.New("nil transcript")
	}
	if transcript.EpisodeGUID == "" {
		return errors.New("transcript episode guid is required")
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO transcripts (episode_guid, transcript_text, transcript_path, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(episode_guid) DO UPDATE SET
			transcript_text = excluded.transcript_text,
			transcript_path = excluded.transcript_path,
			created_at = excluded.created_at`,
		transcript.EpisodeGUID,
		transcript.TranscriptText,
		transcript.TranscriptPath,
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", transcript.EpisodeGUID, err)
	}
	return nil
}

// GetTranscript fetches the transcript for an episode, or ErrUnknownItem
// when none was saved.
func (s *Store) GetTranscript(ctx context.Context, episodeGUID string) (*Transcript, error) {
	ctx = ensureContext(ctx)
	var (
		transcript Transcript
		createdAt  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT episode_guid, transcript_text, transcript_path, created_at
		FROM transcripts WHERE episode_guid = ?`, episodeGUID,
	).Scan(&transcript.EpisodeGUID, &transcript.TranscriptText, &transcript.TranscriptPath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transcript for %s", ErrUnknownItem, episodeGUID)
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", episodeGUID, err)
	}
	if t, parseErr := parseTimeString(createdAt); parseErr == nil {
		transcript.CreatedAt = t
	}
	return &transcript, nil
}
