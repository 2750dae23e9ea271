// Package domain – upstream catalog payloads.
//
// These types mirror the JSON returned by the upstream admin API. They are
// what the query store caches; nothing in this service mutates them after a
// fetch.
package domain

import "time"

// Recipe is a single recipe as listed by the admin API.
type Recipe struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Approved  bool      `json:"approved"`
	Rating    float64   `json:"rating,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecipePage is one page of GET /api/admin/recipes.
type RecipePage struct {
	Recipes []Recipe `json:"recipes"`
	Total   int      `json:"total"`
}

// MealPlan is a customer meal plan awaiting or holding approval.
type MealPlan struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Approved   bool      `json:"approved"`
	CustomerID string    `json:"customerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MealPlanPage is one page of GET /api/admin/meal-plans.
type MealPlanPage struct {
	MealPlans []MealPlan `json:"mealPlans"`
	Total     int        `json:"total"`
}

// Stats holds aggregate counters for a resource.
type Stats struct {
	Total     int     `json:"total"`
	Approved  int     `json:"approved"`
	Pending   int     `json:"pending"`
	AvgRating float64 `json:"avgRating"`
}
