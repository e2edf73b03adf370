package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = "checkin.db"

// DBTX is the query surface shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader holds the lookups available both inside and outside a transaction
type reader struct {
	q DBTX
}

// DB wraps the database connection.
// Reads go straight to the connection, writes go through Update.
type DB struct {
	reader
	conn    *sql.DB
	baseDir string
}

// Tx is a store transaction. Every multi-row or read-modify-write change
// happens inside one.
type Tx struct {
	reader
	tx *sql.Tx
}

// Open opens the database, runs any pending migrations and clears
// loading flags left behind by an interrupted mutation.
func Open(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'checkin init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{reader: reader{q: conn}, conn: conn, baseDir: baseDir}

	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := db.startupCleanup(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Initialize creates the database and runs migrations
func Initialize(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &DB{reader: reader{q: conn}, conn: conn, baseDir: baseDir}

	if _, err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// OpenConn wraps an already opened connection, creating the schema if needed.
// No file lock is taken; callers own serialization of the connection.
func OpenConn(conn *sql.DB) (*DB, error) {
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &DB{reader: reader{q: conn}, conn: conn}

	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if err := db.startupCleanup(); err != nil {
		return nil, err
	}

	return db, nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout matches the write lock timeout
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", defaultTimeout.Milliseconds())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

// startupCleanup resets loading flags that can only be set while a
// mutation is in flight.
func (db *DB) startupCleanup() error {
	var n int64
	err := db.Update(context.Background(), func(tx *Tx) error {
		var err error
		n, err = tx.ResetLoadingFlags(context.Background())
		return err
	})
	if err != nil {
		return fmt.Errorf("reset loading flags: %w", err)
	}
	if n > 0 {
		slog.Debug("reset stuck loading flags", "participants", n)
	}
	return nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// BaseDir returns the base directory for the database
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Conn returns the underlying connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Update runs fn inside a single transaction. The transaction commits only
// if fn returns nil; otherwise nothing fn wrote is visible.
func (db *DB) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return db.withWriteLock(func() error {
		sqlTx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}

		if err := fn(&Tx{reader: reader{q: sqlTx}, tx: sqlTx}); err != nil {
			sqlTx.Rollback()
			return err
		}

		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// withWriteLock executes fn while holding an exclusive write lock.
// This prevents concurrent writes from multiple processes.
func (db *DB) withWriteLock(fn func() error) error {
	if db.baseDir == "" {
		return fn()
	}
	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// boolToInt converts a flag to its column representation
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
