package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcus/checkin/internal/models"
)

const regformColumns = `id, remote_id, event_id, title, is_open, registration_count, checked_in_count, deleted`

func scanRegform(row scanner) (*models.Regform, error) {
	var rf models.Regform
	if err := row.Scan(&rf.ID, &rf.RemoteID, &rf.EventID, &rf.Title, &rf.IsOpen,
		&rf.RegistrationCount, &rf.CheckedInCount, &rf.Deleted); err != nil {
		return nil, err
	}
	return &rf, nil
}

// GetRegform returns the registration form with the given local id, or nil if absent
func (r *reader) GetRegform(ctx context.Context, id int64) (*models.Regform, error) {
	rf, err := scanRegform(r.q.QueryRowContext(ctx,
		`SELECT `+regformColumns+` FROM regforms WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get regform %d: %w", id, err)
	}
	return rf, nil
}

// GetRegformByRemote looks a registration form up by remote id within an event.
// Remote regform ids are only unique per event.
func (r *reader) GetRegformByRemote(ctx context.Context, eventID, remoteID int64) (*models.Regform, error) {
	rf, err := scanRegform(r.q.QueryRowContext(ctx,
		`SELECT `+regformColumns+` FROM regforms WHERE event_id = ? AND remote_id = ?`, eventID, remoteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get regform by remote id %d: %w", remoteID, err)
	}
	return rf, nil
}

// ListRegforms returns the registration forms of an event in local id order
func (r *reader) ListRegforms(ctx context.Context, eventID int64, includeDeleted bool) ([]models.Regform, error) {
	query := `SELECT ` + regformColumns + ` FROM regforms WHERE event_id = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list regforms: %w", err)
	}
	defer rows.Close()

	var regforms []models.Regform
	for rows.Next() {
		rf, err := scanRegform(rows)
		if err != nil {
			return nil, err
		}
		regforms = append(regforms, *rf)
	}
	return regforms, rows.Err()
}

// AddRegform inserts a registration form and returns its local id
func (tx *Tx) AddRegform(ctx context.Context, rf *models.Regform) (int64, error) {
	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO regforms (remote_id, event_id, title, is_open, registration_count, checked_in_count, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rf.RemoteID, rf.EventID, rf.Title, boolToInt(rf.IsOpen), rf.RegistrationCount, rf.CheckedInCount,
		boolToInt(rf.Deleted))
	if err != nil {
		return 0, fmt.Errorf("add regform: %w", err)
	}
	return res.LastInsertId()
}

// CascadeSoftDeleteRegform marks the registration form and its participants
// as deleted. It returns the number of rows newly flagged.
func (tx *Tx) CascadeSoftDeleteRegform(ctx context.Context, regformID int64) (int64, error) {
	res, err := tx.tx.ExecContext(ctx,
		`UPDATE participants SET deleted = 1 WHERE deleted = 0 AND regform_id = ?`, regformID)
	if err != nil {
		return 0, fmt.Errorf("delete participants of regform %d: %w", regformID, err)
	}
	participants, _ := res.RowsAffected()

	res, err = tx.tx.ExecContext(ctx, `UPDATE regforms SET deleted = 1 WHERE deleted = 0 AND id = ?`, regformID)
	if err != nil {
		return 0, fmt.Errorf("delete regform %d: %w", regformID, err)
	}
	regforms, _ := res.RowsAffected()

	return participants + regforms, nil
}

// AdjustCheckedInCount adds delta to the form's checked-in counter, never
// going below zero. The read and write happen in one statement.
func (tx *Tx) AdjustCheckedInCount(ctx context.Context, regformID int64, delta int) error {
	_, err := tx.tx.ExecContext(ctx,
		`UPDATE regforms SET checked_in_count = MAX(checked_in_count + ?, 0) WHERE id = ?`, delta, regformID)
	if err != nil {
		return fmt.Errorf("adjust checked-in count of regform %d: %w", regformID, err)
	}
	return nil
}
