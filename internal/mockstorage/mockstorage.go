// Package mockstorage provides a testify-based mock implementation
// of the internal storage interfaces used by the router package.
// It is used for unit testing HTTP handlers by simulating storage behavior.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

// StorageMock is a testify mock that implements all interfaces
// used by the router for storage operations.
//
// Use it in router tests to simulate database behavior.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// using testify's generic mock handler.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfMeals is an optional function field that can be used
	// to customize the return values of GetNumberOfMeals in tests.
	//
	// If non-nil, the mock implementation will call this function directly.
	OnGetNumberOfMeals func(ctx context.Context) (int64, error)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// CreateUser mocks user creation and returns a generated ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, usr, tx)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, userID, tx)
	return args.Get(0).(*user.User), args.Error(1)
}

// GetUserBySessionToken mocks resolving a session token to its owner.
func (m *StorageMock) GetUserBySessionToken(ctx context.Context, sessionToken string) (*user.User, error) {
	args := m.Called(ctx, sessionToken)
	return args.Get(0).(*user.User), args.Error(1)
}

// DeleteUser mocks removing a user together with their meals.
func (m *StorageMock) DeleteUser(ctx context.Context, userID string, tx *sql.Tx) error {
	args := m.Called(ctx, userID, tx)
	return args.Error(0)
}

// InsertMeal mocks storing a single meal.
func (m *StorageMock) InsertMeal(ctx context.Context, theMeal *meal.Meal, tx *sql.Tx) error {
	args := m.Called(ctx, theMeal, tx)
	return args.Error(0)
}

// InsertMeals mocks batch saving of meals.
func (m *StorageMock) InsertMeals(ctx context.Context, meals []meal.Meal, tx *sql.Tx) error {
	args := m.Called(ctx, meals, tx)
	return args.Error(0)
}

// GetMealByID mocks fetching a meal scoped to its owner.
func (m *StorageMock) GetMealByID(ctx context.Context, userID, mealID string) (*meal.Meal, bool, error) {
	args := m.Called(ctx, userID, mealID)
	theMeal, _ := args.Get(0).(*meal.Meal)
	return theMeal, args.Bool(1), args.Error(2)
}

// UpdateMeal mocks a full meal update.
func (m *StorageMock) UpdateMeal(ctx context.Context, theMeal *meal.Meal, tx *sql.Tx) (bool, error) {
	args := m.Called(ctx, theMeal, tx)
	return args.Bool(0), args.Error(1)
}

// DeleteMeal mocks removing a single meal scoped to its owner.
func (m *StorageMock) DeleteMeal(ctx context.Context, userID, mealID string) (bool, error) {
	args := m.Called(ctx, userID, mealID)
	return args.Bool(0), args.Error(1)
}

// GetUserMeals mocks listing a user's meals.
func (m *StorageMock) GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error) {
	args := m.Called(ctx, userID)
	meals, _ := args.Get(0).([]meal.Meal)
	return meals, args.Error(1)
}

// GetNumberOfUserMeals mocks counting a user's meals with an optional
// diet-flag filter.
func (m *StorageMock) GetNumberOfUserMeals(
	ctx context.Context,
	userID string,
	isOnTheDiet *bool,
) (int64, error) {
	args := m.Called(ctx, userID, isOnTheDiet)
	return args.Get(0).(int64), args.Error(1)
}

// RemoveUsersMeals mocks batch deletion of meals grouped by owner.
func (m *StorageMock) RemoveUsersMeals(ctx context.Context, usersMeals map[string][]string) error {
	args := m.Called(ctx, usersMeals)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// GetNumberOfMeals returns the number of recorded meals.
//
// If OnGetNumberOfMeals is defined, the method will call it and return
// its result. Otherwise, it defaults to returning 0 and no error.
func (m *StorageMock) GetNumberOfMeals(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfMeals != nil {
		return m.OnGetNumberOfMeals(ctx)
	}
	return 0, nil
}
