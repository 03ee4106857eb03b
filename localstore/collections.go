// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveWorkout upserts a workout by id.
func (s *Store) SaveWorkout(ctx context.Context, w *Workout) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workouts (id, name, performed_at, duration_sec, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name         = excluded.name,
			performed_at = excluded.performed_at,
			duration_sec = excluded.duration_sec,
			notes        = excluded.notes,
			updated_at   = excluded.updated_at
	`, w.ID, w.Name, formatTime(w.PerformedAt), w.Duration, w.Notes,
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save workout %s: %w", w.ID, err)
	}
	return nil
}

// GetWorkout looks up a workout by id; a missing id returns (nil, nil).
func (s *Store) GetWorkout(ctx context.Context, id string) (*Workout, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var (
		w                                 Workout
		performedAt, createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, performed_at, duration_sec, notes, created_at, updated_at
		FROM workouts WHERE id = ?
	`, id).Scan(&w.ID, &w.Name, &performedAt, &w.Duration, &w.Notes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workout %s: %w", id, err)
	}
	if w.PerformedAt, err = parseTime(performedAt); err != nil {
		return nil, err
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// WorkoutsBetween returns workouts performed in [from, to), newest first.
func (s *Store) WorkoutsBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Workout, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, performed_at, duration_sec, notes, created_at, updated_at
		FROM workouts
		WHERE performed_at >= ? AND performed_at < ?
		ORDER BY performed_at DESC
		LIMIT ? OFFSET ?
	`, formatTime(from), formatTime(to), normalizeLimit(limit), maxInt(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query workouts: %w", err)
	}
	defer rows.Close()

	var workouts []*Workout
	for rows.Next() {
		var (
			w                                 Workout
			performedAt, createdAt, updatedAt string
		)
		if err := rows.Scan(&w.ID, &w.Name, &performedAt, &w.Duration, &w.Notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		if w.PerformedAt, err = parseTime(performedAt); err != nil {
			return nil, err
		}
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, &w)
	}
	return workouts, rows.Err()
}

// DeleteWorkout removes a workout by id; deleting a missing id is not an error.
func (s *Store) DeleteWorkout(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "workouts", id)
}

// SaveExercise upserts an exercise by id.
func (s *Store) SaveExercise(ctx context.Context, e *Exercise) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exercises (id, workout_id, name, sets, reps, weight_kg, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workout_id = excluded.workout_id,
			name       = excluded.name,
			sets       = excluded.sets,
			reps       = excluded.reps,
			weight_kg  = excluded.weight_kg,
			updated_at = excluded.updated_at
	`, e.ID, e.WorkoutID, e.Name, e.Sets, e.Reps, e.WeightKg,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save exercise %s: %w", e.ID, err)
	}
	return nil
}

// GetExercise looks up an exercise by id; a missing id returns (nil, nil).
func (s *Store) GetExercise(ctx context.Context, id string) (*Exercise, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var (
		e                    Exercise
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workout_id, name, sets, reps, weight_kg, created_at, updated_at
		FROM exercises WHERE id = ?
	`, id).Scan(&e.ID, &e.WorkoutID, &e.Name, &e.Sets, &e.Reps, &e.WeightKg, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise %s: %w", id, err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ExercisesByWorkout returns the exercises of one workout, newest first.
func (s *Store) ExercisesByWorkout(ctx context.Context, workoutID string, limit int) ([]*Exercise, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workout_id, name, sets, reps, weight_kg, created_at, updated_at
		FROM exercises
		WHERE workout_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, workoutID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	defer rows.Close()

	var exercises []*Exercise
	for rows.Next() {
		var (
			e                    Exercise
			createdAt, updatedAt string
		)
		if err := rows.Scan(&e.ID, &e.WorkoutID, &e.Name, &e.Sets, &e.Reps, &e.WeightKg, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, &e)
	}
	return exercises, rows.Err()
}

// DeleteExercise removes an exercise by id.
func (s *Store) DeleteExercise(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "exercises", id)
}

// SaveProgressEntry upserts a progress measurement by id.
func (s *Store) SaveProgressEntry(ctx context.Context, p *ProgressEntry) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (id, metric, value, unit, notes, recorded_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			metric      = excluded.metric,
			value       = excluded.value,
			unit        = excluded.unit,
			notes       = excluded.notes,
			recorded_at = excluded.recorded_at,
			updated_at  = excluded.updated_at
	`, p.ID, p.Metric, p.Value, p.Unit, p.Notes,
		formatTime(p.RecordedAt), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save progress entry %s: %w", p.ID, err)
	}
	return nil
}

// GetProgressEntry looks up a measurement by id; a missing id returns (nil, nil).
func (s *Store) GetProgressEntry(ctx context.Context, id string) (*ProgressEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var (
		p                                ProgressEntry
		recordedAt, createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, metric, value, unit, notes, recorded_at, created_at, updated_at
		FROM progress WHERE id = ?
	`, id).Scan(&p.ID, &p.Metric, &p.Value, &p.Unit, &p.Notes, &recordedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress entry %s: %w", id, err)
	}
	if p.RecordedAt, err = parseTime(recordedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProgressByMetric returns measurements for one metric, newest first.
func (s *Store) ProgressByMetric(ctx context.Context, metric string, limit, offset int) ([]*ProgressEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, metric, value, unit, notes, recorded_at, created_at, updated_at
		FROM progress
		WHERE metric = ?
		ORDER BY recorded_at DESC
		LIMIT ? OFFSET ?
	`, metric, normalizeLimit(limit), maxInt(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var entries []*ProgressEntry
	for rows.Next() {
		var (
			p                                ProgressEntry
			recordedAt, createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Metric, &p.Value, &p.Unit, &p.Notes, &recordedAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		if p.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &p)
	}
	return entries, rows.Err()
}

// DeleteProgressEntry removes a measurement by id.
func (s *Store) DeleteProgressEntry(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "progress", id)
}

// SaveChatMessage upserts a chat message by id.
func (s *Store) SaveChatMessage(ctx context.Context, m *ChatMessage) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, sender, body, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			sender          = excluded.sender,
			body            = excluded.body,
			sent_at         = excluded.sent_at
	`, m.ID, m.ConversationID, m.Sender, m.Body, formatTime(m.SentAt), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save chat message %s: %w", m.ID, err)
	}
	return nil
}

// GetChatMessage looks up a message by id; a missing id returns (nil, nil).
func (s *Store) GetChatMessage(ctx context.Context, id string) (*ChatMessage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var (
		m                 ChatMessage
		sentAt, createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender, body, sent_at, created_at
		FROM chat_messages WHERE id = ?
	`, id).Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Body, &sentAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat message %s: %w", id, err)
	}
	if m.SentAt, err = parseTime(sentAt); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// MessagesByConversation returns one conversation's messages, newest first.
func (s *Store) MessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*ChatMessage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, body, sent_at, created_at
		FROM chat_messages
		WHERE conversation_id = ?
		ORDER BY sent_at DESC
		LIMIT ? OFFSET ?
	`, conversationID, normalizeLimit(limit), maxInt(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var (
			m                 ChatMessage
			sentAt, createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Body, &sentAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if m.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// DeleteChatMessage removes a message by id.
func (s *Store) DeleteChatMessage(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "chat_messages", id)
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM "`+table+`" WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
