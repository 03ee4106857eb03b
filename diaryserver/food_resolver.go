// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diaryserver

import "strings"

// Macros holds per-unit nutrient values for one food.
type Macros struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// FoodResolver back-fills nutrient totals for an entry. The client always
// submits zeroed nutrients; resolution happens only here so clients never
// need a local food database.
type FoodResolver interface {
	// Resolve returns per-unit macros for a food, looked up by canonical
	// food id first and by name otherwise. ok is false when the food is
	// unknown; the entry then keeps zero totals.
	Resolve(foodID, name string) (m Macros, ok bool)
}

// StaticFoodResolver resolves foods from a fixed in-memory table keyed by
// lowercase name. It is the default resolver; deployments with a food
// database plug in their own.
type StaticFoodResolver struct {
	byName map[string]Macros
}

// NewStaticFoodResolver builds a resolver over the given name->macros
// table. Keys are matched case-insensitively.
func NewStaticFoodResolver(table map[string]Macros) *StaticFoodResolver {
	byName := make(map[string]Macros, len(table))
	for name, m := range table {
		byName[strings.ToLower(name)] = m
	}
	return &StaticFoodResolver{byName: byName}
}

// Resolve implements FoodResolver.
func (r *StaticFoodResolver) Resolve(foodID, name string) (Macros, bool) {
	m, ok := r.byName[strings.ToLower(name)]
	return m, ok
}

// DefaultFoodResolver returns a resolver with a small reference table of
// common foods, enough for development and demos.
func DefaultFoodResolver() *StaticFoodResolver {
	return NewStaticFoodResolver(map[string]Macros{
		"apple":          {Calories: 52, Protein: 0.3, Carbs: 13.8, Fat: 0.2},
		"banana":         {Calories: 89, Protein: 1.1, Carbs: 22.8, Fat: 0.3},
		"chicken breast": {Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6},
		"white rice":     {Calories: 130, Protein: 2.7, Carbs: 28.2, Fat: 0.3},
		"whole egg":      {Calories: 72, Protein: 6.3, Carbs: 0.4, Fat: 4.8},
		"whey scoop":     {Calories: 120, Protein: 24, Carbs: 3, Fat: 1.5},
	})
}
