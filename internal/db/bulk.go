package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marcus/checkin/internal/models"
)

// Changes is a column-level change set for one row
type Changes map[string]any

// Update pairs a local id with the columns to change on that row
type Update struct {
	ID      int64
	Changes Changes
}

// updatableColumns whitelists the columns BulkUpdate may touch per kind.
// Identity columns (id, remote_id, parent ids) are never updatable.
var updatableColumns = map[models.Kind]map[string]bool{
	models.KindServer: {
		"client_id": true, "scope": true, "auth_token": true,
	},
	models.KindEvent: {
		"base_url": true, "title": true, "date": true, "deleted": true,
	},
	models.KindRegform: {
		"title": true, "is_open": true, "registration_count": true, "checked_in_count": true, "deleted": true,
	},
	models.KindParticipant: {
		"full_name": true, "registration_date": true, "registration_data": true, "state": true,
		"checkin_secret": true, "checked_in": true, "checked_in_dt": true, "occupied_slots": true,
		"price": true, "currency": true, "formatted_price": true, "is_paid": true, "notes": true,
		"deleted": true, "checked_in_loading": true, "is_paid_loading": true,
	},
}

// BulkUpdate applies partial updates to rows of one kind. Columns absent
// from a change set are left untouched. The updates are part of the
// enclosing transaction, so either all of them land or none do.
func (tx *Tx) BulkUpdate(ctx context.Context, kind models.Kind, updates []Update) error {
	allowed, ok := updatableColumns[kind]
	if !ok {
		return fmt.Errorf("bulk update: unknown kind %q", kind)
	}

	for _, u := range updates {
		if len(u.Changes) == 0 {
			continue
		}

		columns := make([]string, 0, len(u.Changes))
		for col := range u.Changes {
			if !allowed[col] {
				return fmt.Errorf("bulk update %s: column %q is not updatable", kind, col)
			}
			columns = append(columns, col)
		}
		sort.Strings(columns)

		sets := make([]string, len(columns))
		args := make([]any, 0, len(columns)+1)
		for i, col := range columns {
			sets[i] = col + " = ?"
			args = append(args, columnValue(u.Changes[col]))
		}
		args = append(args, u.ID)

		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", kind.Table(), strings.Join(sets, ", "))
		if _, err := tx.tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("bulk update %s %d: %w", kind, u.ID, err)
		}
	}
	return nil
}

// columnValue converts Go values to their column representation
func columnValue(v any) any {
	switch val := v.(type) {
	case bool:
		return boolToInt(val)
	case *time.Time:
		return nullTime(val)
	case models.ParticipantState:
		return string(val)
	default:
		return v
	}
}
