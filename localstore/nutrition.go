// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveNutritionEntry upserts an entry by its local id.
func (s *Store) SaveNutritionEntry(ctx context.Context, e *NutritionEntry) error {
	if err := s.ready(); err != nil {
		return err
	}
	foods, err := json.Marshal(e.Foods)
	if err != nil {
		return fmt.Errorf("failed to marshal foods: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nutrition_entries (
			id, meal_type, foods, notes,
			total_calories, total_protein, total_carbs, total_fat,
			logged_at, created_at, updated_at, synced, server_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			meal_type      = excluded.meal_type,
			foods          = excluded.foods,
			notes          = excluded.notes,
			total_calories = excluded.total_calories,
			total_protein  = excluded.total_protein,
			total_carbs    = excluded.total_carbs,
			total_fat      = excluded.total_fat,
			logged_at      = excluded.logged_at,
			updated_at     = excluded.updated_at,
			synced         = excluded.synced,
			server_id      = excluded.server_id
	`, e.ID, string(e.MealType), string(foods), e.Notes,
		e.TotalCalories, e.TotalProtein, e.TotalCarbs, e.TotalFat,
		formatTime(e.LoggedAt), formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
		boolToInt(e.Synced), e.ServerID)
	if err != nil {
		return fmt.Errorf("failed to save nutrition entry %s: %w", e.ID, err)
	}
	return nil
}

// GetNutritionEntry looks up an entry by local id. A missing id is not an
// error; it returns (nil, nil).
func (s *Store) GetNutritionEntry(ctx context.Context, id string) (*NutritionEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, meal_type, foods, notes,
		       total_calories, total_protein, total_carbs, total_fat,
		       logged_at, created_at, updated_at, synced, server_id
		FROM nutrition_entries WHERE id = ?
	`, id)

	e, err := scanNutritionEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// NutritionEntriesBetween returns entries with logged_at in [from, to),
// newest first. limit <= 0 means no limit; offset skips before truncating.
func (s *Store) NutritionEntriesBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*NutritionEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.queryNutritionEntries(ctx, `
		SELECT id, meal_type, foods, notes,
		       total_calories, total_protein, total_carbs, total_fat,
		       logged_at, created_at, updated_at, synced, server_id
		FROM nutrition_entries
		WHERE logged_at >= ? AND logged_at < ?
		ORDER BY logged_at DESC
		LIMIT ? OFFSET ?
	`, formatTime(from), formatTime(to), normalizeLimit(limit), maxInt(offset, 0))
}

// PendingNutritionEntriesBetween returns unsynced entries with logged_at in
// [from, to), newest first. This is the sync engine's outbox query.
func (s *Store) PendingNutritionEntriesBetween(ctx context.Context, from, to time.Time) ([]*NutritionEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.queryNutritionEntries(ctx, `
		SELECT id, meal_type, foods, notes,
		       total_calories, total_protein, total_carbs, total_fat,
		       logged_at, created_at, updated_at, synced, server_id
		FROM nutrition_entries
		WHERE synced = 0 AND logged_at >= ? AND logged_at < ?
		ORDER BY logged_at DESC
	`, formatTime(from), formatTime(to))
}

// MarkNutritionEntrySynced flips the entry to synced and records the
// server-assigned id. Synced only ever transitions false->true and
// server_id unset->set; flipping an already-synced entry is a no-op.
func (s *Store) MarkNutritionEntrySynced(ctx context.Context, id, serverID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE nutrition_entries
		SET synced = 1, server_id = ?, updated_at = ?
		WHERE id = ? AND synced = 0
	`, serverID, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s synced: %w", id, err)
	}
	return nil
}

// DeleteNutritionEntry removes an entry by local id. Deleting a
// non-existent id is not an error.
func (s *Store) DeleteNutritionEntry(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM nutrition_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete nutrition entry %s: %w", id, err)
	}
	return nil
}

// DeleteSyncedNutritionBefore removes synced entries whose logged_at is
// older than cutoff and returns the count removed. Pending entries are
// never swept regardless of age.
func (s *Store) DeleteSyncedNutritionBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM nutrition_entries WHERE synced = 1 AND logged_at < ?
	`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep synced entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept entries: %w", err)
	}
	return int(n), nil
}

func (s *Store) queryNutritionEntries(ctx context.Context, query string, args ...interface{}) ([]*NutritionEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nutrition entries: %w", err)
	}
	defer rows.Close()

	var entries []*NutritionEntry
	for rows.Next() {
		e, err := scanNutritionEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNutritionEntry(row rowScanner) (*NutritionEntry, error) {
	var (
		e                              NutritionEntry
		mealType, foods                string
		loggedAt, createdAt, updatedAt string
		synced                         int
	)
	err := row.Scan(&e.ID, &mealType, &foods, &e.Notes,
		&e.TotalCalories, &e.TotalProtein, &e.TotalCarbs, &e.TotalFat,
		&loggedAt, &createdAt, &updatedAt, &synced, &e.ServerID)
	if err != nil {
		return nil, err
	}
	e.MealType = MealType(mealType)
	e.Synced = synced != 0
	if err := json.Unmarshal([]byte(foods), &e.Foods); err != nil {
		return nil, fmt.Errorf("failed to unmarshal foods for %s: %w", e.ID, err)
	}
	if e.LoggedAt, err = parseTime(loggedAt); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// normalizeLimit maps "no limit" requests to SQLite's unlimited sentinel.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
