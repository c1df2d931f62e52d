package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const newsletterColumns = `message_id, subject, sender, date, body_html, body_text, link,
	status, error_reason, created_at, updated_at`

// UpsertNewsletter inserts an ingested newsletter or refreshes its
// descriptive fields. Status, error_reason, and created_at survive
// re-ingestion of the same message.
func (s *Store) UpsertNewsletter(ctx context.Context, newsletter *Newsletter) error {
	if newsletter == nil {
		return errors.New("nil newsletter")
	}
	if newsletter.MessageID == "" {
		return errors.New("newsletter message id is required")
	}
	now := timestamp(time.Now())

	_, err := s.execWithRetry(ctx, `
		INSERT INTO newsletters (message_id, subject, sender, date, body_html,
			body_text, link, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			subject = excluded.subject,
			sender = excluded.sender,
			date = excluded.date,
			body_html = excluded.body_html,
			body_text = excluded.body_text,
			link = excluded.link,
			updated_at = excluded.updated_at`,
		newsletter.MessageID,
		newsletter.Subject,
		newsletter.Sender,
		newsletter.Date,
		nullableString(newsletter.BodyHTML),
		nullableString(newsletter.BodyText),
		nullableString(newsletter.Link),
		string(StatusPending),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert newsletter %s: %w", newsletter.MessageID, err)
	}
	return nil
}

// GetNewsletter fetches a single newsletter by message ID.
func (s *Store) GetNewsletter(ctx context.Context, messageID string) (*Newsletter, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+newsletterColumns+" FROM newsletters WHERE message_id = ?", messageID)
	newsletter, err := scanNewsletter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: newsletter %s", ErrUnknownItem, messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("get newsletter %s: %w", messageID, err)
	}
	return newsletter, nil
}

// ListNewslettersByStatus returns newsletters in a status, newest first.
// A limit of zero means no limit.
func (s *Store) ListNewslettersByStatus(ctx context.Context, status Status, limit int) ([]*Newsletter, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+newsletterColumns+` FROM newsletters
		WHERE status = ?
		ORDER BY date DESC`+limitClause(limit),
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list newsletters by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectNewsletters(rows)
}

// UpdateNewsletterBodyText stores the parsed plain-text body produced by the
// processing stage.
func (s *Store) UpdateNewsletterBodyText(ctx context.Context, messageID, bodyText string) error {
	res, err := s.execWithRetry(ctx, `
		UPDATE newsletters SET body_text = ?, updated_at = ?
		WHERE message_id = ?`,
		bodyText, timestamp(time.Now()), messageID)
	if err != nil {
		return fmt.Errorf("update newsletter body %s: %w", messageID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update newsletter body %s: %w", messageID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: newsletter %s", ErrUnknownItem, messageID)
	}
	return nil
}

// TransitionNewsletter moves a newsletter through the status lifecycle with
// the same validation semantics as TransitionEpisode.
func (s *Store) TransitionNewsletter(ctx context.Context, messageID string, to Status, errorReason string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.transitionNewsletterOnce(ctx, messageID, to, errorReason)
	})
}

func (s *Store) transitionNewsletterOnce(ctx context.Context, messageID string, to Status, errorReason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM newsletters WHERE message_id = ?", messageID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: newsletter %s", ErrUnknownItem, messageID)
	}
	if err != nil {
		return fmt.Errorf("read newsletter status %s: %w", messageID, err)
	}

	from, ok := ParseStatus(current)
	if !ok {
		return fmt.Errorf("newsletter %s has unrecognized status %q", messageID, current)
	}
	if err := validateTransition(from, to); err != nil {
		return fmt.Errorf("newsletter %s: %w", messageID, err)
	}

	reason := any(nil)
	if to == StatusFailed {
		reason = nullableString(errorReason)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE newsletters SET status = ?, error_reason = ?, updated_at = ?
		WHERE message_id = ?`,
		string(to), reason, timestamp(time.Now()), messageID,
	); err != nil {
		return fmt.Errorf("update newsletter status %s: %w", messageID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition %s: %w", messageID, err)
	}
	return nil
}

func scanNewsletter(row rowScanner) (*Newsletter, error) {
	var (
		newsletter  Newsletter
		status      string
		bodyHTML    sql.NullString
		bodyText    sql.NullString
		link        sql.NullString
		errorReason sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(
		&newsletter.MessageID,
		&newsletter.Subject,
		&newsletter.Sender,
		&newsletter.Date,
		&bodyHTML,
		&bodyText,
		&link,
		&status,
		&errorReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	newsletter.BodyHTML = bodyHTML.String
	newsletter.BodyText = bodyText.String
	newsletter.Link = link.String
	newsletter.ErrorReason = errorReason.String
	newsletter.Status = Status(status)
	if t, err := parseTimeString(createdAt); err == nil {
		newsletter.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		newsletter.UpdatedAt = t
	}
	return &newsletter, nil
}

func collectNewsletters(rows *sql.Rows) ([]*Newsletter, error) {
	var newsletters []*Newsletter
	for rows.Next() {
		newsletter, err := scanNewsletter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan newsletter: %w", err)
		}
		newsletters = append(newsletters, newsletter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate newsletters: %w", err)
	}
	return newsletters, nil
}
