package models

import (
	"errors"
	"time"
)

type RegisterUserRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Address string  `json:"address"`
	Weight  float64 `json:"weight" validate:"omitempty,gt=0"`
	Height  float64 `json:"height" validate:"omitempty,gt=0"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address,omitempty"`
	Weight    float64   `json:"weight,omitempty"`
	Height    float64   `json:"height,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MealRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsOnTheDiet *bool  `json:"isOnTheDiet" validate:"required"`
}

type MealImportItem struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	IsOnTheDiet *bool     `json:"isOnTheDiet" validate:"required"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

type MealImportRequest []MealImportItem

type MealResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsOnTheDiet bool      `json:"isOnTheDiet"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UserMeals []MealResponse

type InternalStatsResponse struct {
	Users int64 `json:"users"`
	Meals int64 `json:"meals"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

type DeleteMealsRequest []string

var ErrMealNotFound = errors.New("the meal does not exist or belongs to another user")

var ErrEmailAlreadyTaken = errors.New("a user with this email is already registered")

var ErrSessionAlreadyBound = errors.New("the session is already bound to a registered user")

type MealsPurgeJob struct {
	UserID        string
	MealsToDelete DeleteMealsRequest
}
