// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package querystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend keeps the slot as one row of a key/value table.
type SQLiteBackend struct {
	db   *sql.DB
	slot string
}

// NewSQLiteBackend opens or creates the database at path and ensures the
// slots table exists.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	b := &SQLiteBackend{db: db, slot: SlotName}
	if err := b.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) createSchema() error {
	_, err := b.db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Load returns the slot value, or ErrSlotEmpty when no row exists.
func (b *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE name = ?`, b.slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", b.slot, err)
	}
	return value, nil
}

// Store upserts the slot value.
func (b *SQLiteBackend) Store(ctx context.Context, value []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		b.slot, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", b.slot, err)
	}
	return nil
}

// Remove deletes the slot row.
func (b *SQLiteBackend) Remove(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, b.slot); err != nil {
		return fmt.Errorf("removing slot %s: %w", b.slot, err)
	}
	return nil
}

// Close releases the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
