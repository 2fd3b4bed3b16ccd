// Package metrics derives aggregate counters and the best in-diet streak
// from a user's meal history.
package metrics

import (
	"errors"
	"sort"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
)

// ErrNoMeals is returned for an empty history, so callers can tell
// "nothing recorded yet" apart from a legitimate all-zero result.
var ErrNoMeals = errors.New("no meals recorded")

// Report holds the aggregates computed over one user's meal history.
// The JSON field names are part of the API contract.
type Report struct {
	TotalNumberOfMeals               int64 `json:"totalNumberOfMeals"`
	TotalNumberOfMealsInTheDiet      int64 `json:"totalNumberOfMealsInTheDiet"`
	TotalNumberOfMealsOffTheDiet     int64 `json:"totalNumberOfMealsOffTheDiet"`
	BestSequenceOfMealsWithinTheDiet int64 `json:"bestSequenceOfMealsWithinTheDiet"`
}

// Compute builds a Report over the given meal history in a single pass.
// The history is reordered by creation time before counting, so callers may
// pass meals in any order. Returns ErrNoMeals for an empty history.
func Compute(meals []meal.Meal) (Report, error) {
	if len(meals) == 0 {
		return Report{}, ErrNoMeals
	}

	ordered := make([]meal.Meal, len(meals))
	copy(ordered, meals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var report Report
	var currentStreak int64
	for _, m := range ordered {
		report.TotalNumberOfMeals++
		if m.IsOnTheDiet {
			report.TotalNumberOfMealsInTheDiet++
			currentStreak++
			continue
		}
		report.TotalNumberOfMealsOffTheDiet++
		if currentStreak > report.BestSequenceOfMealsWithinTheDiet {
			report.BestSequenceOfMealsWithinTheDiet = currentStreak
		}
		currentStreak = 0
	}
	// A streak running to the end of the history is only visible here.
	if currentStreak > report.BestSequenceOfMealsWithinTheDiet {
		report.BestSequenceOfMealsWithinTheDiet = currentStreak
	}

	return report, nil
}
