// Package diaryserver is the remote side of the food-diary outbox: a
// Postgres-backed nutrition tracking service with JWT authentication and
// per-tenant data partitioning. It assigns the server ids that clients
// reconcile against and is the authority for nutrient totals.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diaryserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harrissondutra/fitOS-sub010/internal/auth"
)

// EntryStore is the persistence surface the HTTP handlers depend on. The
// authenticated tenant and user ids travel on the context (see
// internal/auth); the handlers put them there after token validation.
type EntryStore interface {
	CreateEntry(ctx context.Context, req *CreateEntryRequest) (*EntryResponse, error)
	ListEntries(ctx context.Context, day time.Time) ([]*EntryResponse, error)
}

// identityFromContext extracts the authenticated scope set by the HTTP
// layer. A missing id means the call skipped authentication.
func identityFromContext(ctx context.Context) (tenantID, userID string, err error) {
	tenantID, ok := auth.GetTenantID(ctx)
	if !ok {
		return "", "", fmt.Errorf("tenant id not found in context")
	}
	userID, ok = auth.GetUserID(ctx)
	if !ok {
		return "", "", fmt.Errorf("user id not found in context")
	}
	return tenantID, userID, nil
}

// Service implements EntryStore on a Postgres pool.
type Service struct {
	pool     *pgxpool.Pool
	resolver FoodResolver
	logger   *slog.Logger
}

// NewService creates the service and initializes its schema. A nil
// resolver falls back to the built-in reference table.
func NewService(ctx context.Context, pool *pgxpool.Pool, resolver FoodResolver, logger *slog.Logger) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if resolver == nil {
		resolver = DefaultFoodResolver()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{pool: pool, resolver: resolver, logger: logger}
	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Service) initializeSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nutrition_entries (
			id          UUID PRIMARY KEY,
			tenant_id   TEXT NOT NULL,
			user_id     TEXT NOT NULL,
			food_id     TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL,
			quantity    DOUBLE PRECISION NOT NULL,
			unit        TEXT NOT NULL,
			meal_type   TEXT NOT NULL,
			consumed_at TIMESTAMPTZ NOT NULL,
			notes       TEXT NOT NULL DEFAULT '',
			calories    DOUBLE PRECISION NOT NULL DEFAULT 0,
			protein     DOUBLE PRECISION NOT NULL DEFAULT 0,
			carbs       DOUBLE PRECISION NOT NULL DEFAULT 0,
			fat         DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nutrition_entries_scope
			ON nutrition_entries (tenant_id, user_id, consumed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// CreateEntry stores a new diary entry for one user in one tenant,
// assigning the server id and back-filling nutrient totals from the food
// resolver. Unknown foods keep zero totals, matching the client's zeroed
// defaults.
func (s *Service) CreateEntry(ctx context.Context, req *CreateEntryRequest) (*EntryResponse, error) {
	tenantID, userID, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entry := &EntryResponse{
		ID:         uuid.New().String(),
		FoodID:     req.FoodID,
		Name:       req.Name,
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		MealType:   req.MealType,
		ConsumedAt: req.ConsumedAt.UTC(),
		Notes:      req.Notes,
		CreatedAt:  time.Now().UTC(),
	}
	if m, ok := s.resolver.Resolve(req.FoodID, req.Name); ok {
		entry.Calories = m.Calories * req.Quantity
		entry.Protein = m.Protein * req.Quantity
		entry.Carbs = m.Carbs * req.Quantity
		entry.Fat = m.Fat * req.Quantity
	} else {
		s.logger.Debug("unknown food, keeping zero totals", "name", req.Name, "food_id", req.FoodID)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO nutrition_entries (
			id, tenant_id, user_id, food_id, name, quantity, unit, meal_type,
			consumed_at, notes, calories, protein, carbs, fat, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, entry.ID, tenantID, userID, entry.FoodID, entry.Name, entry.Quantity,
		entry.Unit, entry.MealType, entry.ConsumedAt, entry.Notes,
		entry.Calories, entry.Protein, entry.Carbs, entry.Fat, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns one user's entries consumed on the given UTC
// calendar day, newest first.
func (s *Service) ListEntries(ctx context.Context, day time.Time) ([]*EntryResponse, error) {
	tenantID, userID, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows, err := s.pool.Query(ctx, `
		SELECT id, food_id, name, quantity, unit, meal_type, consumed_at,
		       notes, calories, protein, carbs, fat, created_at
		FROM nutrition_entries
		WHERE tenant_id = $1 AND user_id = $2 AND consumed_at >= $3 AND consumed_at < $4
		ORDER BY consumed_at DESC
	`, tenantID, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*EntryResponse
	for rows.Next() {
		var e EntryResponse
		if err := rows.Scan(&e.ID, &e.FoodID, &e.Name, &e.Quantity, &e.Unit,
			&e.MealType, &e.ConsumedAt, &e.Notes,
			&e.Calories, &e.Protein, &e.Carbs, &e.Fat, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
