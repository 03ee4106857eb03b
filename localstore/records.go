// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package localstore

import "time"

// MealType identifies which meal of the day a nutrition entry belongs to.
// The store accepts values outside this set as-is; the remote API is the
// authority on rejecting unknown meal types.
type MealType string

const (
	MealBreakfast   MealType = "breakfast"
	MealLunch       MealType = "lunch"
	MealDinner      MealType = "dinner"
	MealSnack       MealType = "snack"
	MealPreWorkout  MealType = "pre-workout"
	MealPostWorkout MealType = "post-workout"
)

// FoodItem is a single food within a nutrition entry. Locally created
// entries carry one item with zeroed nutrient fields; the server back-fills
// totals once the entry syncs.
type FoodItem struct {
	FoodID   string  `json:"food_id,omitempty"` // canonical food-database id, if known
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber,omitempty"`
	Sugar    float64 `json:"sugar,omitempty"`
}

// NutritionEntry is a food-diary record in the nutrition collection.
//
// ID is assigned locally at creation and never changes. Synced transitions
// only false->true, and ServerID only unset->set, both exactly once, when
// the remote API acknowledges the entry. ID remains the sole local lookup
// key even after ServerID is assigned.
type NutritionEntry struct {
	ID            string     `json:"id"`
	MealType      MealType   `json:"meal_type"`
	Foods         []FoodItem `json:"foods"`
	Notes         string     `json:"notes,omitempty"`
	TotalCalories float64    `json:"total_calories"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalFat      float64    `json:"total_fat"`
	LoggedAt      time.Time  `json:"logged_at"` // user-specified consumption time
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Synced        bool       `json:"synced"`
	ServerID      string     `json:"server_id,omitempty"`
}

// Workout is a logged training session.
type Workout struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PerformedAt time.Time `json:"performed_at"`
	Duration    int       `json:"duration_sec"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Exercise is a single exercise performed within a workout.
type Exercise struct {
	ID        string    `json:"id"`
	WorkoutID string    `json:"workout_id"`
	Name      string    `json:"name"`
	Sets      int       `json:"sets"`
	Reps      int       `json:"reps"`
	WeightKg  float64   `json:"weight_kg"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressEntry is a body-metric measurement (weight, body fat, etc.).
type ProgressEntry struct {
	ID         string    `json:"id"`
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChatMessage is a coach/client chat message kept for offline reading.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
	CreatedAt      time.Time `json:"created_at"`
}
