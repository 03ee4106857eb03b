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

// SaveToCache stores an arbitrary JSON-serializable value under key with a
// type tag. The absolute expiry is computed at write time from
// expiryMinutes; expiryMinutes <= 0 produces an entry that is already
// expired on its next read.
func (s *Store) SaveToCache(ctx context.Context, key string, value interface{}, typ string, expiryMinutes int) error {
	if err := s.ready(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	now := time.Now()
	expiry := now.Add(time.Duration(expiryMinutes) * time.Minute)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, type, expiry, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			type       = excluded.type,
			expiry     = excluded.expiry,
			created_at = excluded.created_at
	`, key, string(data), typ, formatTime(expiry), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", key, err)
	}
	return nil
}

// GetFromCache reads a cache entry. Expiry is enforced lazily: reading an
// expired entry deletes it and reports absent, so the store is
// self-cleaning without a background sweep. A missing or expired key
// returns (nil, "", nil).
func (s *Store) GetFromCache(ctx context.Context, key string) (json.RawMessage, string, error) {
	if err := s.ready(); err != nil {
		return nil, "", err
	}
	var (
		value, typ string
		expiryStr  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, type, expiry FROM cache WHERE key = ?
	`, key).Scan(&value, &typ, &expiryStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	expiry, err := parseTime(expiryStr)
	if err != nil {
		return nil, "", err
	}
	if !time.Now().Before(expiry) {
		s.writeMu.Lock()
		_, delErr := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key)
		s.writeMu.Unlock()
		if delErr != nil {
			s.logger.Warn("failed to delete expired cache entry", "key", key, "error", delErr)
		}
		return nil, "", nil
	}
	return json.RawMessage(value), typ, nil
}

// ClearExpiredCache eagerly removes every expired entry and returns the
// count removed.
func (s *Store) ClearExpiredCache(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE expiry <= ?`, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept cache entries: %w", err)
	}
	return int(n), nil
}
