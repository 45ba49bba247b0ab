package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // register sqlite driver
)

const nvsKey = "core"

// SQLiteStore keeps the blob in a SQLite database, keyed so more
// partitions can share the file.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLiteStore opens or creates the database.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS nvs (
		key TEXT PRIMARY KEY,
		blob BLOB NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create nvs table: %w", err)
	}
	return &SQLiteStore{DB: db}, nil
}

// ReadBlob implements Store.
func (s *SQLiteStore) ReadBlob(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.DB.QueryRowContext(ctx, `SELECT blob FROM nvs WHERE key = ?;`, nvsKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return blob, err
}

// WriteBlob implements Store.
func (s *SQLiteStore) WriteBlob(ctx context.Context, blob []byte) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO nvs (key, blob) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob;`, nvsKey, blob)
	return err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
