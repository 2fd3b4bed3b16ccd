// Package summary shapes already-computed storage counts into the labeled
// aggregate objects served by the summary endpoints.
package summary

// MealsSummary is one user's meal counts partitioned by the diet flag.
// The JSON field names are part of the API contract.
type MealsSummary struct {
	TotalNumberOfMeals           int64 `json:"totalNumberOfMeals"`
	TotalNumberOfMealsInTheDiet  int64 `json:"totalNumberOfMealsInTheDiet"`
	TotalNumberOfMealsOffTheDiet int64 `json:"totalNumberOfMealsOffTheDiet"`
}

// UsersSummary is the global count of registered users.
type UsersSummary struct {
	TotalNumberOfUsersRegistered int64 `json:"totalNumberOfUsersRegistered"`
}

// ForMeals labels one user's meal counts. Counts arrive as strict integers:
// textual count representations are rejected at the storage boundary, never
// coerced here.
func ForMeals(total, inTheDiet, offTheDiet int64) MealsSummary {
	return MealsSummary{
		TotalNumberOfMeals:           total,
		TotalNumberOfMealsInTheDiet:  inTheDiet,
		TotalNumberOfMealsOffTheDiet: offTheDiet,
	}
}

// ForUsers labels the global user count.
func ForUsers(total int64) UsersSummary {
	return UsersSummary{TotalNumberOfUsersRegistered: total}
}
