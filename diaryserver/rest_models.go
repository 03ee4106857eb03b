// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diaryserver

import "time"

// REST/JSON models for the nutrition tracking API. Field names match the
// client wire contract; the server is the authority on nutrient totals.

// CreateEntryRequest is the body of POST /api/nutrition/tracking/entries.
// Tenant and user identity come from the JWT, not the body.
type CreateEntryRequest struct {
	FoodID     string    `json:"foodId,omitempty"`
	Name       string    `json:"name"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	MealType   string    `json:"mealType"`
	ConsumedAt time.Time `json:"consumedAt"`
	Notes      string    `json:"notes,omitempty"`
}

// EntryResponse is a stored entry as returned to clients, with the
// server-assigned id and back-filled nutrient fields.
type EntryResponse struct {
	ID         string    `json:"id"`
	FoodID     string    `json:"foodId,omitempty"`
	Name       string    `json:"name"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	MealType   string    `json:"mealType"`
	ConsumedAt time.Time `json:"consumedAt"`
	Notes      string    `json:"notes,omitempty"`
	Calories   float64   `json:"calories"`
	Protein    float64   `json:"protein"`
	Carbs      float64   `json:"carbs"`
	Fat        float64   `json:"fat"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SuccessResponse is the envelope for successful calls.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusResponse represents service status response
type StatusResponse struct {
	Status  string `json:"status"` // "healthy" while the process serves
	AppName string `json:"app_name"`
}
