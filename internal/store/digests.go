package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UpsertDigestEntry records the preview row for a processed newsletter so
// daily digests can list it without re-parsing the body.
func (s *Store) UpsertDigestEntry(ctx context.Context, entry *DigestEntry) error {
	if entry == nil {
		return errors.New("nil digest entry")
	}
	if entry.MessageID == "" {
		return errors.New("digest entry message id is required")
	}

	_, err := s.execWithRetry(ctx, `
		INSERT INTO digest_entries (message_id, subject, preview, source_link, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			subject = excluded.subject,
			preview = excluded.preview,
			source_link = excluded.source_link,
			created_at = excluded.created_at`,
		entry.MessageID,
		entry.Subject,
		entry.Preview,
		nullableString(entry.SourceLink),
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert digest entry %s: %w", entry.MessageID, err)
	}
	return nil
}

// DigestEntries returns entries created within the half-open window
// [since, until), oldest first.
func (s *Store) DigestEntries(ctx context.Context, since, until time.Time) ([]*DigestEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, subject, preview, COALESCE(source_link, ''), created_at
		FROM digest_entries
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC`,
		timestamp(since), timestamp(until))
	if err != nil {
		return nil, fmt.Errorf("list digest entries: %w", err)
	}
	defer rows.Close()

	var entries []*DigestEntry
	for rows.Next() {
		var (
			entry     DigestEntry
			createdAt string
		)
		if err := rows.Scan(&entry.MessageID, &entry.Subject, &entry.Preview,
			&entry.SourceLink, &createdAt); err != nil {
			return nil, fmt.Errorf("scan digest entry: %w", err)
		}
		if t, err := parseTimeString(createdAt); err == nil {
			entry.CreatedAt = t
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate digest entries: %w", err)
	}
	return entries, nil
}
