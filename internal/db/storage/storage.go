// Package storage declares the full contract a database backend has to
// satisfy to serve the application.
package storage

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

// Storage is the union of everything the service layer needs from a backend.
// The transaction parameter is nil-tolerant: non-SQL backends ignore it.
type Storage interface {
	CreateUser(
		ctx context.Context,
		usr *user.User,
		transaction *sql.Tx,
	) (string, error)

	GetUserByID(
		ctx context.Context,
		userID string,
		transaction *sql.Tx,
	) (*user.User, error)

	GetUserBySessionToken(
		ctx context.Context,
		sessionToken string,
	) (*user.User, error)

	DeleteUser(
		ctx context.Context,
		userID string,
		transaction *sql.Tx,
	) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	InsertMeal(
		ctx context.Context,
		theMeal *meal.Meal,
		transaction *sql.Tx,
	) error

	InsertMeals(
		ctx context.Context,
		meals []meal.Meal,
		transaction *sql.Tx,
	) error

	GetMealByID(
		ctx context.Context,
		userID,
		mealID string,
	) (*meal.Meal, bool, error)

	UpdateMeal(
		ctx context.Context,
		theMeal *meal.Meal,
		transaction *sql.Tx,
	) (bool, error)

	DeleteMeal(
		ctx context.Context,
		userID,
		mealID string,
	) (bool, error)

	GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error)

	GetNumberOfUserMeals(
		ctx context.Context,
		userID string,
		isOnTheDiet *bool,
	) (int64, error)

	GetNumberOfMeals(ctx context.Context) (int64, error)

	RemoveUsersMeals(
		ctx context.Context,
		usersMeals map[string][]string,
	) error

	Ping(ctx context.Context) error

	Close() error

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}
