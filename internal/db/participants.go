package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/checkin/internal/models"
)

const participantColumns = `id, remote_id, regform_id, full_name, registration_date, registration_data,
	state, checkin_secret, checked_in, checked_in_dt, occupied_slots, price, currency, formatted_price,
	is_paid, notes, deleted, checked_in_loading, is_paid_loading`

func scanParticipant(row scanner) (*models.Participant, error) {
	var (
		p           models.Participant
		checkedInDt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.RemoteID, &p.RegformID, &p.FullName, &p.RegistrationDate, &p.RegistrationData,
		&p.State, &p.CheckinSecret, &p.CheckedIn, &checkedInDt, &p.OccupiedSlots, &p.Price, &p.Currency,
		&p.FormattedPrice, &p.IsPaid, &p.Notes, &p.Deleted, &p.CheckedInLoading, &p.IsPaidLoading)
	if err != nil {
		return nil, err
	}
	if checkedInDt.Valid {
		t := checkedInDt.Time
		p.CheckedInDt = &t
	}
	return &p, nil
}

func (r *reader) queryParticipants(ctx context.Context, query string, args ...any) ([]models.Participant, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

// GetParticipant returns the participant with the given local id, or nil if absent
func (r *reader) GetParticipant(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := scanParticipant(r.q.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %d: %w", id, err)
	}
	return p, nil
}

// GetParticipantByRemote looks a participant up by remote id within a registration form
func (r *reader) GetParticipantByRemote(ctx context.Context, regformID, remoteID int64) (*models.Participant, error) {
	p, err := scanParticipant(r.q.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE regform_id = ? AND remote_id = ?`, regformID, remoteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant by remote id %d: %w", remoteID, err)
	}
	return p, nil
}

// FindParticipantsBySecret returns live participants holding a check-in secret
func (r *reader) FindParticipantsBySecret(ctx context.Context, secret string) ([]models.Participant, error) {
	participants, err := r.queryParticipants(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE checkin_secret = ? AND deleted = 0 ORDER BY id`, secret)
	if err != nil {
		return nil, fmt.Errorf("find participants by secret: %w", err)
	}
	return participants, nil
}

// ListParticipants returns the participants of a registration form ordered by name
func (r *reader) ListParticipants(ctx context.Context, regformID int64, includeDeleted bool) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE regform_id = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	query += ` ORDER BY full_name COLLATE NOCASE, id`

	participants, err := r.queryParticipants(ctx, query, regformID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// AddParticipant inserts a participant and returns its local id.
// Loading flags always start cleared.
func (tx *Tx) AddParticipant(ctx context.Context, p *models.Participant) (int64, error) {
	res, err := tx.tx.ExecContext(ctx, `
		INSERT INTO participants (remote_id, regform_id, full_name, registration_date, registration_data,
			state, checkin_secret, checked_in, checked_in_dt, occupied_slots, price, currency, formatted_price,
			is_paid, notes, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RemoteID, p.RegformID, p.FullName, p.RegistrationDate, p.RegistrationData,
		string(p.State), p.CheckinSecret, boolToInt(p.CheckedIn), nullTime(p.CheckedInDt), p.OccupiedSlots, p.Price,
		p.Currency, p.FormattedPrice, boolToInt(p.IsPaid), p.Notes, boolToInt(p.Deleted))
	if err != nil {
		return 0, fmt.Errorf("add participant: %w", err)
	}
	return res.LastInsertId()
}

// SetParticipantNotes replaces the local notes of a participant
func (tx *Tx) SetParticipantNotes(ctx context.Context, id int64, notes string) error {
	res, err := tx.tx.ExecContext(ctx, `UPDATE participants SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("set notes of participant %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("participant %d not found", id)
	}
	return nil
}

// ResetLoadingFlags clears every check-in and payment loading flag and
// returns the number of participants that had one set.
func (tx *Tx) ResetLoadingFlags(ctx context.Context) (int64, error) {
	res, err := tx.tx.ExecContext(ctx, `
		UPDATE participants SET checked_in_loading = 0, is_paid_loading = 0
		WHERE checked_in_loading != 0 OR is_paid_loading != 0`)
	if err != nil {
		return 0, fmt.Errorf("reset loading flags: %w", err)
	}
	return res.RowsAffected()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
