// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diarysync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// entriesPath is the remote outbox endpoint the engine flushes to.
const entriesPath = "/api/nutrition/tracking/entries"

// remoteEntryRequest is the wire shape of a single entry create call.
// Field names follow the tracking API contract.
type remoteEntryRequest struct {
	FoodID     string  `json:"foodId,omitempty"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	MealType   string  `json:"mealType"`
	ConsumedAt string  `json:"consumedAt"`
	Notes      string  `json:"notes,omitempty"`
}

// remoteEntryResponse is the success envelope; the body is not assumed
// parseable on failure.
type remoteEntryResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID string `json:"id"`
	} `json:"data"`
}

// createRemoteEntry posts one pending entry and returns the
// server-assigned id. Any non-2xx status or transport error (including a
// request timeout) is an entry-level failure; the caller leaves the entry
// pending and moves on.
func (e *Engine) createRemoteEntry(ctx context.Context, token, tenantID string, entry PendingEntry) (string, error) {
	reqBody := remoteEntryRequest{
		FoodID:     entry.FoodID,
		Name:       entry.Name,
		Quantity:   entry.Quantity,
		Unit:       entry.Unit,
		MealType:   string(entry.MealType),
		ConsumedAt: entry.ConsumedAt.UTC().Format(time.RFC3339),
		Notes:      entry.Notes,
	}
	jsonData, err := json.Marshal(&reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.BaseURL+entriesPath, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Tenant-Id", tenantID)

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var entryResp remoteEntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&entryResp); err != nil {
		return "", fmt.Errorf("failed to decode entry response: %w", err)
	}
	if !entryResp.Success || entryResp.Data.ID == "" {
		return "", fmt.Errorf("server did not acknowledge entry (success=%v)", entryResp.Success)
	}
	return entryResp.Data.ID, nil
}
