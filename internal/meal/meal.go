// Package meal defines the meal record model: a single logged meal owned by
// exactly one user, flagged as within or outside the diet.
package meal

import "time"

// Meal represents one logged meal.
// Visibility and mutation of a meal are restricted to its owning user.
type Meal struct {
	// ID is the unique identifier of the meal, meaning a UUID.
	ID string

	// UserID references the owning user.
	UserID string

	// Name is the short label of the meal.
	Name string

	// Description is the free-form detail text.
	Description string

	// IsOnTheDiet marks whether the meal was within the user's diet.
	IsOnTheDiet bool

	// CreatedAt orders the meal within the user's history.
	CreatedAt time.Time
}
