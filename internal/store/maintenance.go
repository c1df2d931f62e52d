package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReclaimStale moves in_progress items back to pending when they have not
// been touched within the cutoff window. This recovers items orphaned by a
// crash mid-processing; progress the crashed run already persisted is kept
// and the item is simply picked up again on the next run.
func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	ctx = ensureContext(ctx)
	cutoff := timestamp(time.Now().Add(-olderThan))
	now := timestamp(time.Now())

	total := 0
	for _, table := range []string{"episodes", "newsletters"} {
		res, err := s.execWithRetry(ctx, fmt.Sprintf(`
			UPDATE %s SET status = ?, error_reason = NULL, updated_at = ?
			WHERE status = ? AND updated_at < ?`, table),
			string(StatusPending), now, string(StatusInProgress), cutoff)
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s: %w", table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("reclaim stale %s rows: %w", table, err)
		}
		total += int(affected)
	}
	return total, nil
}

// StatsByKind counts items per status for both kinds.
func (s *Store) StatsByKind(ctx context.Context) ([]Stats, error) {
	ctx = ensureContext(ctx)
	stats := make([]Stats, 0, 2)
	for _, spec := range []struct {
		kind  ItemKind
		table string
	}{
		{KindPodcast, "episodes"},
		{KindNewsletter, "newsletters"},
	} {
		counts, err := s.statusCounts(ctx, spec.table)
		if err != nil {
			return nil, err
		}
		stats = append(stats, Stats{Kind: spec.kind, Counts: counts})
	}
	return stats, nil
}

func (s *Store) statusCounts(ctx context.Context, table string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT status, COUNT(1) FROM %s GROUP BY status", table))
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan %s counts: %w", table, err)
		}
		counts[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s counts: %w", table, err)
	}
	return counts, nil
}

// FailedItems returns items currently in failed status, most recent first,
// for digests and the status command.
func (s *Store) FailedItems(ctx context.Context) ([]*FailedItem, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT guid, 'podcast', title, COALESCE(error_reason, ''), updated_at
		FROM episodes WHERE status = ?
		UNION ALL
		SELECT message_id, 'newsletter', subject, COALESCE(error_reason, ''), updated_at
		FROM newsletters WHERE status = ?
		ORDER BY updated_at DESC`,
		string(StatusFailed), string(StatusFailed))
	if err != nil {
		return nil, fmt.Errorf("list failed items: %w", err)
	}
	defer rows.Close()

	var items []*FailedItem
	for rows.Next() {
		var (
			item      FailedItem
			kind      string
			updatedAt string
		)
		if err := rows.Scan(&item.ItemID, &kind, &item.Title,
			&item.ErrorReason, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan failed item: %w", err)
		}
		item.ItemKind = ItemKind(kind)
		if t, err := parseTimeString(updatedAt); err == nil {
			item.UpdatedAt = t
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed items: %w", err)
	}
	return items, nil
}

// ResolveItemKind finds which table knows an identity. Used by the retry
// and skip commands, which take a bare item ID.
func (s *Store) ResolveItemKind(ctx context.Context, itemID string) (ItemKind, error) {
	ctx = ensureContext(ctx)
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM episodes WHERE guid = ?", itemID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("resolve item kind %s: %w", itemID, err)
	}
	if exists > 0 {
		return KindPodcast, nil
	}
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM newsletters WHERE message_id = ?", itemID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("resolve item kind %s: %w", itemID, err)
	}
	if exists > 0 {
		return KindNewsletter, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
}

// Transition dispatches a status change to the right table for an item kind.
func (s *Store) Transition(ctx context.Context, kind ItemKind, itemID string, to Status, errorReason string) error {
	switch kind {
	case KindPodcast:
		return s.TransitionEpisode(ctx, itemID, to, errorReason)
	case KindNewsletter:
		return s.TransitionNewsletter(ctx, itemID, to, errorReason)
	default:
		return fmt.Errorf("unknown item kind %q", kind)
	}
}
