package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const episodeColumns = `guid, feed_url, title, publish_date, author, audio_url, video_url,
	status, error_reason, created_at, updated_at`

// UpsertEpisode inserts a discovered episode or refreshes its descriptive
// fields. Pipeline fields (status, error_reason, created_at) are never
// touched on conflict, so re-discovery cannot reset progress.
func (s *Store) UpsertEpisode(ctx context.Context, episode *Episode) error {
	if episode == nil {
		return errors.New("nil episode")
	}
	if episode.GUID == "" {
		return errors.New("episode guid is required")
	}
	now := timestamp(time.Now())

	_, err := s.execWithRetry(ctx, `
		INSERT INTO episodes (guid, feed_url, title, publish_date, author,
			audio_url, video_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			feed_url = excluded.feed_url,
			title = excluded.title,
			publish_date = excluded.publish_date,
			author = excluded.author,
			audio_url = excluded.audio_url,
			video_url = excluded.video_url,
			updated_at = excluded.updated_at`,
		episode.GUID,
		episode.FeedURL,
		episode.Title,
		episode.PublishDate,
		nullableString(episode.Author),
		nullableString(episode.AudioURL),
		nullableString(episode.VideoURL),
		string(StatusPending),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert episode %s: %w", episode.GUID, err)
	}
	return nil
}

// GetEpisode fetches a single episode by GUID.
func (s *Store) GetEpisode(ctx context.Context, guid string) (*Episode, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+episodeColumns+" FROM episodes WHERE guid = ?", guid)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: episode %s", ErrUnknownItem, guid)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode %s: %w", guid, err)
	}
	return episode, nil
}

// ListEpisodesByStatus returns episodes in a status, newest publish date
// first. A limit of zero means no limit.
func (s *Store) ListEpisodesByStatus(ctx context.Context, status Status, limit int) ([]*Episode, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+episodeColumns+` FROM episodes
		WHERE status = ?
		ORDER BY publish_date DESC`+limitClause(limit),
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list episodes by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// TransitionEpisode moves an episode through the status lifecycle. The
// current status is read and validated inside one transaction so concurrent
// writers cannot race past the legal-transition table. errorReason is stored
// only when the target status is failed; any other target clears it.
func (s *Store) TransitionEpisode(ctx context.Context, guid string, to Status, errorReason string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.transitionEpisodeOnce(ctx, guid, to, errorReason)
	})
}

func (s *Store) transitionEpisodeOnce(ctx context.Context, guid string, to Status, errorReason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM episodes WHERE guid = ?", guid).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: episode %s", ErrUnknownItem, guid)
	}
	if err != nil {
		return fmt.Errorf("read episode status %s: %w", guid, err)
	}

	from, ok := ParseStatus(current)
	if !ok {
		return fmt.Errorf("episode %s has unrecognized status %q", guid, current)
	}
	if err := validateTransition(from, to); err != nil {
		return fmt.Errorf("episode %s: %w", guid, err)
	}

	reason := any(nil)
	if to == StatusFailed {
		reason = nullableString(errorReason)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE episodes SET status = ?, error_reason = ?, updated_at = ?
		WHERE guid = ?`,
		string(to), reason, timestamp(time.Now()), guid,
	); err != nil {
		return fmt.Errorf("update episode status %s: %w", guid, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition %s: %w", guid, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var (
		episode     Episode
		status      string
		author      sql.NullString
		audioURL    sql.NullString
		videoURL    sql.NullString
		errorReason sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(
		&episode.GUID,
		&episode.FeedURL,
		&episode.Title,
		&episode.PublishDate,
		&author,
		&audioURL,
		&videoURL,
		&status,
		&errorReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	episode.Author = author.String
	episode.AudioURL = audioURL.String
	episode.VideoURL = videoURL.String
	episode.ErrorReason = errorReason.String
	episode.Status = Status(status)
	if t, err := parseTimeString(createdAt); err == nil {
		episode.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		episode.UpdatedAt = t
	}
	return &episode, nil
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, episode)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}
	return episodes, nil
}
