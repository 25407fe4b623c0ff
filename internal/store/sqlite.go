// Package store persists per-trip price history records in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Key identifies one tracked trip lineage. ReturnDateKey is the return date
// or the empty string for one-way trips; the full tuple is unique.
type Key struct {
	Context       string
	Origin        string
	Destination   string
	DepartDate    string
	ReturnDateKey string
}

// Record is the persisted price history for a key. Records are created on
// first observation and updated forever after; the pipeline never deletes.
type Record struct {
	Key
	LastPrice     float64
	LastSeenAt    time.Time
	LastAlertedAt time.Time
}

// Fields are the mutable record columns for an upsert. A nil AlertedAt
// leaves last_alerted_at untouched on update.
type Fields struct {
	LastPrice float64
	SeenAt    time.Time
	AlertedAt *time.Time
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS deal_seen (
	context         TEXT NOT NULL,
	origin          TEXT NOT NULL,
	destination     TEXT NOT NULL,
	depart_date     TEXT NOT NULL,
	return_date_key TEXT NOT NULL,
	last_price      REAL NOT NULL,
	last_seen_at    INTEGER NOT NULL,
	last_alerted_at INTEGER NOT NULL,
	UNIQUE(context, origin, destination, depart_date, return_date_key)
);`

// Open initializes the sqlite database, enabling WAL for concurrent readers.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record for key, or nil when the key has never been seen.
func (s *Store) Get(ctx context.Context, key Key) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_price, last_seen_at, last_alerted_at
		FROM deal_seen
		WHERE context = ? AND origin = ? AND destination = ? AND depart_date = ? AND return_date_key = ?`,
		key.Context, key.Origin, key.Destination, key.DepartDate, key.ReturnDateKey,
	)

	var price float64
	var seenMs, alertedMs int64
	if err := row.Scan(&price, &seenMs, &alertedMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deal_seen: %w", err)
	}

	return &Record{
		Key:           key,
		LastPrice:     price,
		LastSeenAt:    time.UnixMilli(seenMs).UTC(),
		LastAlertedAt: time.UnixMilli(alertedMs).UTC(),
	}, nil
}

// Upsert inserts the record with create when the key is new, and applies
// update when it already exists. Concurrent first observations of the same
// key therefore degrade to an update instead of erroring.
func (s *Store) Upsert(ctx context.Context, key Key, create, update Fields) error {
	createAlerted := create.SeenAt
	if create.AlertedAt != nil {
		createAlerted = *create.AlertedAt
	}

	var updateAlerted any // nil keeps the existing value via COALESCE
	if update.AlertedAt != nil {
		updateAlerted = update.AlertedAt.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deal_seen (context, origin, destination, depart_date, return_date_key,
			last_price, last_seen_at, last_alerted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(context, origin, destination, depart_date, return_date_key)
		DO UPDATE SET
			last_price = ?,
			last_seen_at = ?,
			last_alerted_at = COALESCE(?, deal_seen.last_alerted_at)`,
		key.Context, key.Origin, key.Destination, key.DepartDate, key.ReturnDateKey,
		create.LastPrice, create.SeenAt.UnixMilli(), createAlerted.UnixMilli(),
		update.LastPrice, update.SeenAt.UnixMilli(), updateAlerted,
	)
	if err != nil {
		return fmt.Errorf("upsert deal_seen: %w", err)
	}
	return nil
}
