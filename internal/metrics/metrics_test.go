package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
)

func mealsFromFlags(flags []bool) []meal.Meal {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	result := make([]meal.Meal, len(flags))
	for i, isOnTheDiet := range flags {
		result[i] = meal.Meal{
			ID:          "meal-" + string(rune('a'+i)),
			UserID:      "user-1",
			Name:        "meal",
			IsOnTheDiet: isOnTheDiet,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
	}
	return result
}

func TestCompute(t *testing.T) {
	type want struct {
		total      int64
		inTheDiet  int64
		offTheDiet int64
		bestStreak int64
	}
	tests := []struct {
		name  string
		flags []bool
		want  want
	}{
		{
			name:  "mixed history with mid streak",
			flags: []bool{true, true, false, true, true, true, false},
			want:  want{total: 7, inTheDiet: 5, offTheDiet: 2, bestStreak: 3},
		},
		{
			name:  "no compliant meals",
			flags: []bool{false, false},
			want:  want{total: 2, inTheDiet: 0, offTheDiet: 2, bestStreak: 0},
		},
		{
			name:  "streak running to the end of the history",
			flags: []bool{true, false, true, true},
			want:  want{total: 4, inTheDiet: 3, offTheDiet: 1, bestStreak: 2},
		},
		{
			name:  "all compliant",
			flags: []bool{true, true, true, true, true},
			want:  want{total: 5, inTheDiet: 5, offTheDiet: 0, bestStreak: 5},
		},
		{
			name:  "single compliant meal",
			flags: []bool{true},
			want:  want{total: 1, inTheDiet: 1, offTheDiet: 0, bestStreak: 1},
		},
		{
			name:  "single non compliant meal",
			flags: []bool{false},
			want:  want{total: 1, inTheDiet: 0, offTheDiet: 1, bestStreak: 0},
		},
		{
			name:  "two separate streaks of the same length",
			flags: []bool{true, true, false, true, true},
			want:  want{total: 5, inTheDiet: 4, offTheDiet: 1, bestStreak: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Compute(mealsFromFlags(tt.flags))
			require.NoError(t, err)

			assert.Equal(t, tt.want.total, report.TotalNumberOfMeals)
			assert.Equal(t, tt.want.inTheDiet, report.TotalNumberOfMealsInTheDiet)
			assert.Equal(t, tt.want.offTheDiet, report.TotalNumberOfMealsOffTheDiet)
			assert.Equal(t, tt.want.bestStreak, report.BestSequenceOfMealsWithinTheDiet)

			assert.Equal(
				t,
				report.TotalNumberOfMeals,
				report.TotalNumberOfMealsInTheDiet+report.TotalNumberOfMealsOffTheDiet,
				"the totals should partition by the diet flag",
			)
			assert.LessOrEqual(
				t,
				report.BestSequenceOfMealsWithinTheDiet,
				report.TotalNumberOfMealsInTheDiet,
				"the best streak should not exceed the number of compliant meals",
			)
		})
	}
}

func TestComputeEmptyHistory(t *testing.T) {
	report, err := Compute(nil)
	assert.ErrorIs(t, err, ErrNoMeals)
	assert.Equal(t, Report{}, report)

	report, err = Compute([]meal.Meal{})
	assert.ErrorIs(t, err, ErrNoMeals)
	assert.Equal(t, Report{}, report)
}

func TestComputeIsIdempotent(t *testing.T) {
	meals := mealsFromFlags([]bool{true, false, true, true, false, true})

	first, err := Compute(meals)
	require.NoError(t, err)

	second, err := Compute(meals)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeReordersByCreationTime(t *testing.T) {
	// Chronologically this is [true, true, false]: the streak of 2 exists
	// only after the engine restores creation order.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	meals := []meal.Meal{
		{ID: "m3", IsOnTheDiet: false, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "m1", IsOnTheDiet: true, CreatedAt: base},
		{ID: "m2", IsOnTheDiet: true, CreatedAt: base.Add(time.Hour)},
	}

	report, err := Compute(meals)
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.TotalNumberOfMeals)
	assert.Equal(t, int64(2), report.BestSequenceOfMealsWithinTheDiet)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	meals := []meal.Meal{
		{ID: "m2", IsOnTheDiet: true, CreatedAt: base.Add(time.Hour)},
		{ID: "m1", IsOnTheDiet: false, CreatedAt: base},
	}

	_, err := Compute(meals)
	require.NoError(t, err)

	assert.Equal(t, "m2", meals[0].ID, "the caller's slice should keep its order")
	assert.Equal(t, "m1", meals[1].ID)
}
