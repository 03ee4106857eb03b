// Package diarysync bridges the local nutrition collection and the remote
// tracking API with an outbox pattern: local writes are immediate and
// always succeed from the UI's perspective, while remote durability is
// best-effort and asynchronous. Pending entries are flushed one at a time;
// a failed entry stays pending and is retried on the next explicit sync or
// on a connectivity transition back online.
// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diarysync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/harrissondutra/fitOS-sub010/localstore"
)

// settingLastSync is the settings key recording the last sync completion
// time, read back by Status.
const settingLastSync = "lastFoodDiarySync"

var (
	// ErrNotAuthenticated is reported when a sync is attempted without a
	// token or tenant id. The whole sync call aborts before any network
	// request, with no partial batch side-effects.
	ErrNotAuthenticated = errors.New("diarysync: not authenticated")

	// ErrSyncInProgress is reported when SyncPending is invoked while a
	// previous invocation is still running. The concurrent call is a no-op
	// so the same pending entry is never submitted twice.
	ErrSyncInProgress = errors.New("diarysync: sync already in progress")
)

// Config holds configuration for the sync engine.
type Config struct {
	BaseURL        string        // remote API base, e.g. "https://api.fitos.app"
	RequestTimeout time.Duration // per-entry request timeout
	RetentionDays  int           // synced entries older than this are swept
}

// DefaultConfig returns a configuration with the engine's standard timing.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		RequestTimeout: 15 * time.Second,
		RetentionDays:  7,
	}
}

// Engine reconciles pending nutrition entries with the remote API.
// Construct one per application and pass it down explicitly; the engine
// holds no global state.
type Engine struct {
	store   *localstore.Store
	session Session
	http    *http.Client
	config  *Config
	logger  *slog.Logger

	syncInFlight int32 // atomic; guards against overlapping SyncPending calls
}

// NewEngine creates a sync engine over an initialized Store. A nil client
// falls back to a default http.Client; per-entry timeouts come from
// Config.RequestTimeout either way.
func NewEngine(store *localstore.Store, session Session, client *http.Client, config *Config, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("config.BaseURL must be provided")
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if config.RetentionDays <= 0 {
		config.RetentionDays = 7
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		session: session,
		http:    client,
		config:  config,
		logger:  logger,
	}, nil
}

// AddPendingEntry constructs a new pending nutrition entry from the
// flattened input, persists it locally and returns the generated local id.
// The entry carries a single food item with zeroed nutrient fields; the
// remote system back-fills totals once the entry syncs.
func (e *Engine) AddPendingEntry(ctx context.Context, in PendingEntryInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", fmt.Errorf("invalid pending entry: %w", err)
	}

	now := time.Now()
	entry := &localstore.NutritionEntry{
		ID:       uuid.New().String(),
		MealType: in.MealType,
		Foods: []localstore.FoodItem{{
			FoodID:   in.FoodID,
			Name:     in.Name,
			Quantity: in.Quantity,
			Unit:     in.Unit,
		}},
		Notes:     in.Notes,
		LoggedAt:  in.ConsumedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.SaveNutritionEntry(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to persist pending entry: %w", err)
	}
	return entry.ID, nil
}

// PendingEntries returns the unsynced entries logged on the given calendar
// day (in day's location), newest first, projected into the flattened
// pending shape. The day scope is an explicit parameter: SyncPending
// passes the current day, which means pending entries from prior days are
// not retried by it. That scope is inherited behavior, kept deliberately
// rather than widened.
func (e *Engine) PendingEntries(ctx context.Context, day time.Time) ([]PendingEntry, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	entries, err := e.store.PendingNutritionEntriesBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending entries: %w", err)
	}
	pending := make([]PendingEntry, 0, len(entries))
	for _, entry := range entries {
		pending = append(pending, projectEntry(entry))
	}
	return pending, nil
}

// SyncResult is the aggregate outcome of one SyncPending invocation.
type SyncResult struct {
	Pending      int       // pending count observed at start
	Synced       int       // entries acknowledged by the server
	Failed       int       // entries that stayed pending
	ErrorSummary string    // human-readable summary when Failed > 0
	CompletedAt  time.Time // when the batch finished
}

// SyncPending flushes today's pending entries to the remote API, one at a
// time. Entry-level failures (non-2xx, transport errors, timeouts) are
// isolated: the entry stays pending, the error is counted, and the batch
// continues. The only errors returned are ErrSyncInProgress,
// ErrNotAuthenticated and local-store failures that prevent the batch from
// starting at all.
func (e *Engine) SyncPending(ctx context.Context) (*SyncResult, error) {
	if !atomic.CompareAndSwapInt32(&e.syncInFlight, 0, 1) {
		return nil, ErrSyncInProgress
	}
	defer atomic.StoreInt32(&e.syncInFlight, 0)

	token, err := e.session.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session token: %w", err)
	}
	tenantID, err := e.session.TenantID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant id: %w", err)
	}
	if token == "" || tenantID == "" {
		return nil, ErrNotAuthenticated
	}

	pending, err := e.PendingEntries(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Pending: len(pending)}
	if len(pending) == 0 {
		result.CompletedAt = time.Now()
		return result, nil
	}

	// Sequential on purpose: one network round-trip at a time keeps the
	// remote API load bounded and failure isolation simple.
	for _, entry := range pending {
		serverID, err := e.createRemoteEntry(ctx, token, tenantID, entry)
		if err != nil {
			result.Failed++
			e.logger.Warn("entry sync failed, keeping pending",
				"entry", entry.LocalID, "error", err)
			continue
		}

		if err := e.store.MarkNutritionEntrySynced(ctx, entry.LocalID, serverID); err != nil {
			// The server accepted the entry but the local flip failed; the
			// entry will be resubmitted on the next sync. Count it as a
			// failure so callers see the batch was not clean.
			result.Failed++
			e.logger.Error("failed to mark entry synced",
				"entry", entry.LocalID, "server_id", serverID, "error", err)
			continue
		}
		result.Synced++
	}

	result.CompletedAt = time.Now()
	if result.Failed > 0 {
		result.ErrorSummary = fmt.Sprintf("%d of %d entries failed to sync", result.Failed, result.Pending)
	}

	if err := e.store.SetSetting(ctx, settingLastSync, result.CompletedAt.UTC().Format(time.RFC3339)); err != nil {
		e.logger.Warn("failed to record last sync time", "error", err)
	}
	return result, nil
}

// Status is a read-only snapshot of the engine's sync state.
type Status struct {
	PendingCount int
	LastSync     time.Time // zero if no sync has completed yet
}

// Status reports the current day's pending count and the last recorded
// sync completion time.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	pending, err := e.PendingEntries(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	status := &Status{PendingCount: len(pending)}

	value, found, err := e.store.GetSetting(ctx, settingLastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}
	if found {
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			e.logger.Warn("ignoring malformed last sync timestamp", "value", value)
		} else {
			status.LastSync = t
		}
	}
	return status, nil
}

// DeletePendingEntry removes a diary entry by its local id. Deleting a
// missing id is not an error.
func (e *Engine) DeletePendingEntry(ctx context.Context, id string) error {
	return e.store.DeleteNutritionEntry(ctx, id)
}

// CleanupSyncedEntries purges synced entries older than the retention
// horizon and returns the count removed. Pending entries are never purged.
func (e *Engine) CleanupSyncedEntries(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -e.config.RetentionDays)
	return e.store.DeleteSyncedNutritionBefore(ctx, cutoff)
}
