// Package localstore provides a durable, client-side, multi-collection
// database for the fitOS offline-first apps. Each collection (workouts,
// exercises, progress, nutrition entries, chat messages, settings, cache)
// lives in its own SQLite table with secondary indexes, and survives app
// restarts. All operations are local-only; networking is the sync layer's
// concern.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is the declared schema version, recorded in PRAGMA
// user_version. Raising it makes Init run the migration again for the new
// tables; the migration is a single transaction, all-or-nothing.
const schemaVersion = 1

// timeLayout is a fixed-width UTC timestamp format so that lexicographic
// comparison in SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// ErrNotInitialized is returned by every Store operation invoked before
// Init has completed. It indicates a programming error in the caller, not
// a runtime condition to recover from.
var ErrNotInitialized = errors.New("localstore: store not initialized")

// Store manages the local SQLite database and its collections.
type Store struct {
	db          *sql.DB
	logger      *slog.Logger
	writeMu     sync.Mutex // Serialize write operations to prevent SQLite locking issues
	initialized int32      // atomic; 1 once Init has completed
}

// New creates a Store on top of an opened SQLite database handle. Init must
// be called (and awaited) before any other operation.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Init declares all collections and their secondary indexes. It is
// idempotent: reopening an already-migrated database is a no-op. The
// migration runs inside one transaction so a partially-applied schema can
// never be observed.
func (s *Store) Init(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if atomic.LoadInt32(&s.initialized) == 1 {
		return nil
	}

	// Enable WAL mode and foreign keys
	if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if current < schemaVersion {
		if err := s.migrate(ctx, current); err != nil {
			return err
		}
	}

	atomic.StoreInt32(&s.initialized, 1)
	return nil
}

// migrate applies the full schema in a single transaction and bumps
// user_version at the end, so either every collection for the target
// version exists or none do.
func (s *Store) migrate(ctx context.Context, from int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workouts (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			performed_at TEXT NOT NULL,
			duration_sec INTEGER NOT NULL DEFAULT 0,
			notes        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_performed_at ON workouts(performed_at)`,

		`CREATE TABLE IF NOT EXISTS exercises (
			id         TEXT PRIMARY KEY,
			workout_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			sets       INTEGER NOT NULL DEFAULT 0,
			reps       INTEGER NOT NULL DEFAULT 0,
			weight_kg  REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exercises_workout ON exercises(workout_id)`,
		`CREATE INDEX IF NOT EXISTS idx_exercises_name ON exercises(name)`,

		`CREATE TABLE IF NOT EXISTS progress (
			id          TEXT PRIMARY KEY,
			metric      TEXT NOT NULL,
			value       REAL NOT NULL,
			unit        TEXT NOT NULL,
			notes       TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_metric ON progress(metric, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS nutrition_entries (
			id             TEXT PRIMARY KEY,
			meal_type      TEXT NOT NULL,
			foods          TEXT NOT NULL,  -- JSON array of food items
			notes          TEXT NOT NULL DEFAULT '',
			total_calories REAL NOT NULL DEFAULT 0,
			total_protein  REAL NOT NULL DEFAULT 0,
			total_carbs    REAL NOT NULL DEFAULT 0,
			total_fat      REAL NOT NULL DEFAULT 0,
			logged_at      TEXT NOT NULL,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL,
			synced         INTEGER NOT NULL DEFAULT 0,
			server_id      TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nutrition_logged_at ON nutrition_entries(logged_at)`,
		`CREATE INDEX IF NOT EXISTS idx_nutrition_synced ON nutrition_entries(synced, logged_at)`,

		`CREATE TABLE IF NOT EXISTS chat_messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender          TEXT NOT NULL,
			body            TEXT NOT NULL,
			sent_at         TEXT NOT NULL,
			created_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_conversation ON chat_messages(conversation_id, sent_at)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cache (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,  -- JSON
			type       TEXT NOT NULL,
			expiry     TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache(expiry)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create collection (migrating from v%d): %w", from, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// ready gates every public operation on Init having completed.
func (s *Store) ready() error {
	if atomic.LoadInt32(&s.initialized) == 0 {
		return ErrNotInitialized
	}
	return nil
}

// collectionTables lists every collection table, used by ClearDatabase and
// DatabaseSize.
var collectionTables = []string{
	"workouts", "exercises", "progress", "nutrition_entries",
	"chat_messages", "settings", "cache",
}

// ClearDatabase wipes every collection. Used only for full resets
// (logout, diagnostic reset).
func (s *Store) ClearDatabase(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range collectionTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM "`+table+`"`); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// DatabaseSize returns an approximate byte-size estimate across all
// collections, computed by JSON-serializing each collection's full
// contents. This is an estimate, not a storage accounting; callers must
// not use it for capacity enforcement.
func (s *Store) DatabaseSize(ctx context.Context) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var total int64
	for _, table := range collectionTables {
		n, err := s.estimateTableSize(ctx, table)
		if err != nil {
			s.logger.Warn("failed to estimate collection size", "collection", table, "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

func (s *Store) estimateTableSize(ctx context.Context, table string) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT * FROM "`+table+`"`)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to get columns: %w", err)
	}

	var total int64
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return 0, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		data, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal row: %w", err)
		}
		total += int64(len(data))
	}
	return total, rows.Err()
}

// formatTime renders a timestamp in the store's canonical UTC layout.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a timestamp written by formatTime.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
