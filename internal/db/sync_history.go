package db

import (
	"context"
	"fmt"
	"time"
)

// maxSyncHistory is how many rows RecordSyncHistory keeps
const maxSyncHistory = 500

// SyncHistoryEntry records how one event sync ended
type SyncHistoryEntry struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	Outcome   string    `json:"outcome"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Deleted   int       `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

// parseTimestamp tries common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.RFC3339Nano, Value: s}
}

// RecordSyncHistory appends an entry and prunes all but the newest rows
func (tx *Tx) RecordSyncHistory(ctx context.Context, e *SyncHistoryEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO sync_history (event_id, outcome, inserted, updated, deleted, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, e.Outcome, e.Inserted, e.Updated, e.Deleted, e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record sync history: %w", err)
	}

	_, err = tx.tx.ExecContext(ctx, `
		DELETE FROM sync_history WHERE id NOT IN (
			SELECT id FROM sync_history ORDER BY id DESC LIMIT ?
		)`, maxSyncHistory)
	if err != nil {
		return fmt.Errorf("prune sync history: %w", err)
	}
	return nil
}

// GetSyncHistoryTail returns the last limit entries in chronological order
// (oldest first). eventID 0 means every event.
func (r *reader) GetSyncHistoryTail(ctx context.Context, eventID int64, limit int) ([]SyncHistoryEntry, error) {
	query := `SELECT id, event_id, outcome, inserted, updated, deleted, timestamp FROM sync_history`
	args := []any{}
	if eventID != 0 {
		query += ` WHERE event_id = ?`
		args = append(args, eventID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sync history: %w", err)
	}
	defer rows.Close()

	var entries []SyncHistoryEntry
	for rows.Next() {
		var e SyncHistoryEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.EventID, &e.Outcome, &e.Inserted, &e.Updated, &e.Deleted, &ts); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
