package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcus/checkin/internal/models"
)

const eventColumns = `id, remote_id, server_id, base_url, title, date, deleted`

func scanEvent(row scanner) (*models.Event, error) {
	var e models.Event
	if err := row.Scan(&e.ID, &e.RemoteID, &e.ServerID, &e.BaseURL, &e.Title, &e.Date, &e.Deleted); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEvent returns the event with the given local id, or nil if absent
func (r *reader) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(r.q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

// GetEventByRemote looks an event up by its remote id on the given server
func (r *reader) GetEventByRemote(ctx context.Context, serverID, remoteID int64) (*models.Event, error) {
	e, err := scanEvent(r.q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE server_id = ? AND remote_id = ?`, serverID, remoteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event by remote id %d: %w", remoteID, err)
	}
	return e, nil
}

// ListEvents returns events ordered by date, newest first
func (r *reader) ListEvents(ctx context.Context, includeDeleted bool) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// AddEvent inserts an event and returns its local id
func (tx *Tx) AddEvent(ctx context.Context, e *models.Event) (int64, error) {
	res, err := tx.tx.ExecContext(ctx,
		`INSERT INTO events (remote_id, server_id, base_url, title, date, deleted) VALUES (?, ?, ?, ?, ?, ?)`,
		e.RemoteID, e.ServerID, models.NormalizeBaseURL(e.BaseURL), e.Title, e.Date, boolToInt(e.Deleted))
	if err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	return res.LastInsertId()
}

// CascadeSoftDeleteEvent marks the event, its registration forms and their
// participants as deleted. It returns the number of rows newly flagged.
func (tx *Tx) CascadeSoftDeleteEvent(ctx context.Context, eventID int64) (int64, error) {
	var total int64

	res, err := tx.tx.ExecContext(ctx, `
		UPDATE participants SET deleted = 1
		WHERE deleted = 0 AND regform_id IN (SELECT id FROM regforms WHERE event_id = ?)`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete participants of event %d: %w", eventID, err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = tx.tx.ExecContext(ctx, `UPDATE regforms SET deleted = 1 WHERE deleted = 0 AND event_id = ?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete regforms of event %d: %w", eventID, err)
	}
	n, _ = res.RowsAffected()
	total += n

	res, err = tx.tx.ExecContext(ctx, `UPDATE events SET deleted = 1 WHERE deleted = 0 AND id = ?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete event %d: %w", eventID, err)
	}
	n, _ = res.RowsAffected()
	total += n

	return total, nil
}
