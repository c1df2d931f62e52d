package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSummary records the summarization output for a completed item. The
// owning item's status is checked inside the same transaction; writing a
// summary for an item that is not completed returns ErrNotCompleted.
// Summary presence, not a status change, is what marks an item summarized.
func (s *Store) SaveSummary(ctx context.Context, summary *Summary) error {
	if summary == nil {
		return errors.New("nil summary")
	}
	if summary.ItemID == "" {
		return errors.New("summary item id is required")
	}
	if summary.ItemKind != KindPodcast && summary.ItemKind != KindNewsletter {
		return fmt.Errorf("unknown item kind %q", summary.ItemKind)
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.saveSummaryOnce(ctx, summary)
	})
}

func (s *Store) saveSummaryOnce(ctx context.Context, summary *Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statusQuery := "SELECT status FROM episodes WHERE guid = ?"
	if summary.ItemKind == KindNewsletter {
		statusQuery = "SELECT status FROM newsletters WHERE message_id = ?"
	}
	var current string
	err = tx.QueryRowContext(ctx, statusQuery, summary.ItemID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrUnknownItem, summary.ItemKind, summary.ItemID)
	}
	if err != nil {
		return fmt.Errorf("read item status %s: %w", summary.ItemID, err)
	}
	if Status(current) != StatusCompleted {
		return fmt.Errorf("%w: %s %s is %s", ErrNotCompleted, summary.ItemKind, summary.ItemID, current)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO summaries (item_id, item_type, summary, key_topics, companies,
			tools, quotes, raw_rating, final_rating, structured_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			summary = excluded.summary,
			key_topics = excluded.key_topics,
			companies = excluded.companies,
			tools = excluded.tools,
			quotes = excluded.quotes,
			raw_rating = excluded.raw_rating,
			final_rating = excluded.final_rating,
			structured_summary = excluded.structured_summary,
			created_at = excluded.created_at`,
		summary.ItemID,
		string(summary.ItemKind),
		summary.Summary,
		nullableString(summary.KeyTopicsJSON),
		nullableString(summary.CompaniesJSON),
		nullableString(summary.ToolsJSON),
		nullableString(summary.QuotesJSON),
		summary.RawRating,
		summary.FinalRating,
		nullableString(summary.StructuredJSON),
		timestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("save summary %s: %w", summary.ItemID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary %s: %w", summary.ItemID, err)
	}
	return nil
}

// GetSummary fetches the summary for an item, or ErrUnknownItem when none
// exists yet.
func (s *Store) GetSummary(ctx context.Context, itemID string) (*Summary, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, item_type, summary, key_topics, companies, tools, quotes,
			raw_rating, final_rating, structured_summary, created_at
		FROM summaries WHERE item_id = ?`, itemID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: summary for %s", ErrUnknownItem, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("get summary %s: %w", itemID, err)
	}
	return summary, nil
}

// EpisodesNeedingSummary returns completed episodes without a summary row,
// joined with their transcript text. Episodes whose transcript is missing
// still appear with empty Text so the caller can log the inconsistency.
func (s *Store) EpisodesNeedingSummary(ctx context.Context) ([]*SummaryCandidate, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.guid, e.title, e.author, e.publish_date,
			COALESCE(t.transcript_text, '')
		FROM episodes e
		LEFT JOIN transcripts t ON t.episode_guid = e.guid
		LEFT JOIN summaries s ON s.item_id = e.guid
		WHERE e.status = ? AND s.item_id IS NULL
		ORDER BY e.publish_date ASC`,
		string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("episodes needing summary: %w", err)
	}
	defer rows.Close()

	var candidates []*SummaryCandidate
	for rows.Next() {
		var (
			candidate SummaryCandidate
			author    sql.NullString
		)
		candidate.ItemKind = KindPodcast
		if err := rows.Scan(&candidate.ItemID, &candidate.Title, &author,
			&candidate.Date, &candidate.Text); err != nil {
			return nil, fmt.Errorf("scan summary candidate: %w", err)
		}
		candidate.Author = author.String
		candidates = append(candidates, &candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary candidates: %w", err)
	}
	return candidates, nil
}

// NewslettersNeedingSummary returns completed newsletters without a summary
// row. Text prefers the parsed plain body and falls back to raw HTML.
func (s *Store) NewslettersNeedingSummary(ctx context.Context) ([]*SummaryCandidate, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.message_id, n.subject, n.sender, n.date,
			COALESCE(NULLIF(n.body_text, ''), n.body_html, '')
		FROM newsletters n
		LEFT JOIN summaries s ON s.item_id = n.message_id
		WHERE n.status = ? AND s.item_id IS NULL
		ORDER BY n.date ASC`,
		string(StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("newsletters needing summary: %w", err)
	}
	defer rows.Close()

	var candidates []*SummaryCandidate
	for rows.Next() {
		var candidate SummaryCandidate
		candidate.ItemKind = KindNewsletter
		if err := rows.Scan(&candidate.ItemID, &candidate.Title, &candidate.Author,
			&candidate.Date, &candidate.Text); err != nil {
			return nil, fmt.Errorf("scan summary candidate: %w", err)
		}
		candidates = append(candidates, &candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary candidates: %w", err)
	}
	return candidates, nil
}

// SummarizedEpisodes returns episodes whose summary was created within the
// half-open window [since, until), newest summary first.
func (s *Store) SummarizedEpisodes(ctx context.Context, since, until time.Time) ([]*SummarizedItem, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.guid, e.title, e.author, e.publish_date,
			COALESCE(NULLIF(e.video_url, ''), e.audio_url, ''),
			s.item_id, s.item_type, s.summary, s.key_topics, s.companies,
			s.tools, s.quotes, s.raw_rating, s.final_rating,
			s.structured_summary, s.created_at
		FROM summaries s
		JOIN episodes e ON e.guid = s.item_id
		WHERE s.item_type = ? AND s.created_at >= ? AND s.created_at < ?
		ORDER BY s.created_at DESC`,
		string(KindPodcast), timestamp(since), timestamp(until))
	if err != nil {
		return nil, fmt.Errorf("summarized episodes: %w", err)
	}
	defer rows.Close()
	return collectSummarizedItems(rows)
}

// SummarizedNewsletters returns newsletters whose summary was created within
// the half-open window [since, until), newest summary first.
func (s *Store) SummarizedNewsletters(ctx context.Context, since, until time.Time) ([]*SummarizedItem, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.message_id, n.subject, n.sender, n.date,
			COALESCE(n.link, ''),
			s.item_id, s.item_type, s.summary, s.key_topics, s.companies,
			s.tools, s.quotes, s.raw_rating, s.final_rating,
			s.structured_summary, s.created_at
		FROM summaries s
		JOIN newsletters n ON n.message_id = s.item_id
		WHERE s.item_type = ? AND s.created_at >= ? AND s.created_at < ?
		ORDER BY s.created_at DESC`,
		string(KindNewsletter), timestamp(since), timestamp(until))
	if err != nil {
		return nil, fmt.Errorf("summarized newsletters: %w", err)
	}
	defer rows.Close()
	return collectSummarizedItems(rows)
}

func scanSummary(row rowScanner) (*Summary, error) {
	var (
		summary    Summary
		itemType   string
		keyTopics  sql.NullString
		companies  sql.NullString
		tools      sql.NullString
		quotes     sql.NullString
		rawRating  sql.NullInt64
		finalRate  sql.NullInt64
		structured sql.NullString
		createdAt  string
	)
	if err := row.Scan(
		&summary.ItemID,
		&itemType,
		&summary.Summary,
		&keyTopics,
		&companies,
		&tools,
		&quotes,
		&rawRating,
		&finalRate,
		&structured,
		&createdAt,
	); err != nil {
		return nil, err
	}
	summary.ItemKind = ItemKind(itemType)
	summary.KeyTopicsJSON = keyTopics.String
	summary.CompaniesJSON = companies.String
	summary.ToolsJSON = tools.String
	summary.QuotesJSON = quotes.String
	summary.RawRating = int(rawRating.Int64)
	summary.FinalRating = int(finalRate.Int64)
	summary.StructuredJSON = structured.String
	if t, err := parseTimeString(createdAt); err == nil {
		summary.CreatedAt = t
	}
	return &summary, nil
}

func collectSummarizedItems(rows *sql.Rows) ([]*SummarizedItem, error) {
	var items []*SummarizedItem
	for rows.Next() {
		var (
			item       SummarizedItem
			author     sql.NullString
			link       sql.NullString
			itemType   string
			keyTopics  sql.NullString
			companies  sql.NullString
			tools      sql.NullString
			quotes     sql.NullString
			rawRating  sql.NullInt64
			finalRate  sql.NullInt64
			structured sql.NullString
			createdAt  string
		)
		if err := rows.Scan(
			&item.ItemID,
			&item.Title,
			&author,
			&item.Date,
			&link,
			&item.Summary.ItemID,
			&itemType,
			&item.Summary.Summary,
			&keyTopics,
			&companies,
			&tools,
			&quotes,
			&rawRating,
			&finalRate,
			&structured,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan summarized item: %w", err)
		}
		item.Author = author.String
		item.Link = link.String
		item.ItemKind = ItemKind(itemType)
		item.Summary.ItemKind = item.ItemKind
		item.Summary.KeyTopicsJSON = keyTopics.String
		item.Summary.CompaniesJSON = companies.String
		item.Summary.ToolsJSON = tools.String
		item.Summary.QuotesJSON = quotes.String
		item.Summary.RawRating = int(rawRating.Int64)
		item.Summary.FinalRating = int(finalRate.Int64)
		item.Summary.StructuredJSON = structured.String
		if t, err := parseTimeString(createdAt); err == nil {
			item.Summary.CreatedAt = t
			item.SummaryCreatedAt = t
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summarized items: %w", err)
	}
	return items, nil
}
