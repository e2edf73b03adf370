package db

import (
	"database/sql"
	"fmt"
)

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order.
// Each one must be safe to run against a database created from the
// current schema.
var Migrations = []Migration{
	{
		Version:     2,
		Description: "Unique remote ids within their parent scope",
		SQL: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_remote ON events(server_id, remote_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_regforms_remote ON regforms(event_id, remote_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_remote ON participants(regform_id, remote_id);
`,
	},
	{
		Version:     3,
		Description: "Index participants by check-in secret for offline scans",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_participants_secret ON participants(checkin_secret);`,
	},
	{
		Version:     4,
		Description: "Sync history",
		SQL: `
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_id INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    inserted INTEGER NOT NULL DEFAULT 0,
    updated INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_history_event ON sync_history(event_id);
`,
	},
}

// GetSchemaVersion returns the current schema version from the database
func (db *DB) GetSchemaVersion() (int, error) {
	var version string
	err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		// No version set, assume version 0 (pre-migration)
		return 0, nil
	}
	if err != nil {
		// Table might not exist yet
		return 0, nil
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

// setSchemaVersionInternal sets schema version without acquiring lock
func (db *DB) setSchemaVersionInternal(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// RunMigrations runs any pending database migrations
func (db *DB) RunMigrations() (int, error) {
	// Quick check without lock - if already at current version, skip
	currentVersion, _ := db.GetSchemaVersion()
	if currentVersion >= SchemaVersion {
		return 0, nil
	}

	var migrationsRun int
	err := db.withWriteLock(func() error {
		var err error
		migrationsRun, err = db.runMigrationsInternal()
		return err
	})
	return migrationsRun, err
}

// runMigrationsInternal runs migrations without acquiring lock
func (db *DB) runMigrationsInternal() (int, error) {
	_, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	currentVersion, err := db.GetSchemaVersion()
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}

	migrationsRun := 0
	for _, migration := range Migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if _, err := db.conn.Exec(migration.SQL); err != nil {
			return migrationsRun, fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
		}
		if err := db.setSchemaVersionInternal(migration.Version); err != nil {
			return migrationsRun, fmt.Errorf("set version %d: %w", migration.Version, err)
		}
		migrationsRun++
	}

	if currentVersion == 0 && migrationsRun == 0 {
		if err := db.setSchemaVersionInternal(SchemaVersion); err != nil {
			return migrationsRun, err
		}
	}

	return migrationsRun, nil
}
