// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diarysync

import (
	"fmt"
	"time"

	"github.com/harrissondutra/fitOS-sub010/localstore"
)

// PendingEntryInput is the flattened shape the UI submits when logging a
// food. Name, Quantity, Unit, MealType and ConsumedAt are required; FoodID
// and Notes are optional. MealType is deliberately not validated against
// the known meal set here; the remote API is the authority on rejecting
// unknown values.
type PendingEntryInput struct {
	FoodID     string              `json:"foodId,omitempty"`
	Name       string              `json:"name"`
	Quantity   float64             `json:"quantity"`
	Unit       string              `json:"unit"`
	MealType   localstore.MealType `json:"mealType"`
	ConsumedAt time.Time           `json:"consumedAt"`
	Notes      string              `json:"notes,omitempty"`
}

// Validate checks the required fields.
func (in *PendingEntryInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("name is required")
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if in.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if in.MealType == "" {
		return fmt.Errorf("mealType is required")
	}
	if in.ConsumedAt.IsZero() {
		return fmt.Errorf("consumedAt is required")
	}
	return nil
}

// PendingEntry is the sync-facing flattened view of a nutrition entry.
// It is produced only by projectEntry; the richer collection-native
// localstore.NutritionEntry stays the single source of truth.
type PendingEntry struct {
	LocalID    string              `json:"localId"`
	FoodID     string              `json:"foodId,omitempty"`
	Name       string              `json:"name"`
	Quantity   float64             `json:"quantity"`
	Unit       string              `json:"unit"`
	MealType   localstore.MealType `json:"mealType"`
	ConsumedAt time.Time           `json:"consumedAt"`
	Notes      string              `json:"notes,omitempty"`
	Synced     bool                `json:"synced"`
	ServerID   string              `json:"serverId,omitempty"`
}

// projectEntry is the one-way projection NutritionEntry -> PendingEntry.
// Locally created entries always carry exactly one food item; if an entry
// somehow has none, the projection yields empty food fields rather than
// failing, since the entry's identity fields are still meaningful.
func projectEntry(e *localstore.NutritionEntry) PendingEntry {
	p := PendingEntry{
		LocalID:    e.ID,
		MealType:   e.MealType,
		ConsumedAt: e.LoggedAt,
		Notes:      e.Notes,
		Synced:     e.Synced,
		ServerID:   e.ServerID,
	}
	if len(e.Foods) > 0 {
		food := e.Foods[0]
		p.FoodID = food.FoodID
		p.Name = food.Name
		p.Quantity = food.Quantity
		p.Unit = food.Unit
	}
	return p
}
