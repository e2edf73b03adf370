package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcus/checkin/internal/models"
)

const serverColumns = `id, base_url, client_id, scope, auth_token, created_at`

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*models.Server, error) {
	var s models.Server
	if err := row.Scan(&s.ID, &s.BaseURL, &s.ClientID, &s.Scope, &s.AuthToken, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetServer returns the server with the given local id, or nil if absent
func (r *reader) GetServer(ctx context.Context, id int64) (*models.Server, error) {
	s, err := scanServer(r.q.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get server %d: %w", id, err)
	}
	return s, nil
}

// GetServerByURL returns the server registered for baseURL, or nil if absent
func (r *reader) GetServerByURL(ctx context.Context, baseURL string) (*models.Server, error) {
	s, err := scanServer(r.q.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE base_url = ?`, models.NormalizeBaseURL(baseURL)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get server %s: %w", baseURL, err)
	}
	return s, nil
}

// ListServers returns all servers ordered by local id
func (r *reader) ListServers(ctx context.Context) ([]models.Server, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, *s)
	}
	return servers, rows.Err()
}

// AddServer inserts a server and returns its local id
func (tx *Tx) AddServer(ctx context.Context, s *models.Server) (int64, error) {
	res, err := tx.tx.ExecContext(ctx,
		`INSERT INTO servers (base_url, client_id, scope, auth_token) VALUES (?, ?, ?, ?)`,
		models.NormalizeBaseURL(s.BaseURL), s.ClientID, s.Scope, s.AuthToken)
	if err != nil {
		return 0, fmt.Errorf("add server: %w", err)
	}
	return res.LastInsertId()
}
