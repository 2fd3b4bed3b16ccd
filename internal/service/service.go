package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/metrics"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/summary"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type usersKeeper interface {
	CreateUser(
		ctx context.Context,
		usr *user.User,
		transaction *sql.Tx,
	) (string, error)

	DeleteUser(
		ctx context.Context,
		userID string,
		transaction *sql.Tx,
	) error

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type mealsKeeper interface {
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

	GetMealByID(ctx context.Context, userID, mealID string) (*meal.Meal, bool, error)

	UpdateMeal(
		ctx context.Context,
		theMeal *meal.Meal,
		transaction *sql.Tx,
	) (bool, error)

	DeleteMeal(ctx context.Context, userID, mealID string) (bool, error)

	GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error)

	GetNumberOfUserMeals(
		ctx context.Context,
		userID string,
		isOnTheDiet *bool,
	) (int64, error)

	GetNumberOfMeals(ctx context.Context) (int64, error)
}

type storage interface {
	transactioner
	usersKeeper
	mealsKeeper
}

type mealsPurger interface {
	EnqueueJob(job *models.MealsPurgeJob)
}

// ErrMealNotFound is returned when the requested meal does not exist or
// belongs to another user.
var ErrMealNotFound = models.ErrMealNotFound

var ErrEmailAlreadyTaken = models.ErrEmailAlreadyTaken

var ErrSessionAlreadyBound = models.ErrSessionAlreadyBound

// ErrNoMeals is returned by GetUserMetrics when the user has not recorded
// a single meal yet.
var ErrNoMeals = metrics.ErrNoMeals

type Service struct {
	db          storage
	mealsPurger mealsPurger
}

func New(
	db storage,
	mealsPurger mealsPurger,
) *Service {
	return &Service{
		db:          db,
		mealsPurger: mealsPurger,
	}
}

// RegisterUser creates a new account with a freshly issued session token.
func (s *Service) RegisterUser(ctx context.Context, request models.RegisterUserRequest) (*user.User, error) {
	usr := &user.User{
		Name:         request.Name,
		Email:        request.Email,
		Address:      request.Address,
		Weight:       request.Weight,
		Height:       request.Height,
		SessionToken: uuid.New().String(),
	}

	if _, err := s.db.CreateUser(ctx, usr, nil); err != nil {
		return nil, err
	}

	return usr, nil
}

// CreateMeal records a single meal for the given user.
func (s *Service) CreateMeal(ctx context.Context, userID string, request models.MealRequest) (*meal.Meal, error) {
	theMeal := &meal.Meal{
		UserID:      userID,
		Name:        request.Name,
		Description: request.Description,
		IsOnTheDiet: *request.IsOnTheDiet,
	}

	if err := s.db.InsertMeal(ctx, theMeal, nil); err != nil {
		return nil, err
	}

	return theMeal, nil
}

// ImportMeals stores a whole meal history in one transaction.
// Items without a creation time are stamped by the storage layer.
func (s *Service) ImportMeals(ctx context.Context, userID string, request models.MealImportRequest) ([]meal.Meal, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	meals := make([]meal.Meal, 0, len(request))
	for _, item := range request {
		meals = append(meals, meal.Meal{
			UserID:      userID,
			Name:        item.Name,
			Description: item.Description,
			IsOnTheDiet: *item.IsOnTheDiet,
			CreatedAt:   item.CreatedAt,
		})
	}

	if err := s.db.InsertMeals(ctx, meals, tx); err != nil {
		return nil, err
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return nil, err
	}

	return meals, nil
}

// GetUserMeals returns the user's meals ordered by creation time.
func (s *Service) GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error) {
	return s.db.GetUserMeals(ctx, userID)
}

func (s *Service) GetMeal(ctx context.Context, userID, mealID string) (*meal.Meal, error) {
	theMeal, found, err := s.db.GetMealByID(ctx, userID, mealID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMealNotFound
	}
	return theMeal, nil
}

// UpdateMeal replaces the mutable fields of the user's meal and returns the
// stored record.
func (s *Service) UpdateMeal(ctx context.Context, userID, mealID string, request models.MealRequest) (*meal.Meal, error) {
	updated, err := s.db.UpdateMeal(ctx, &meal.Meal{
		ID:          mealID,
		UserID:      userID,
		Name:        request.Name,
		Description: request.Description,
		IsOnTheDiet: *request.IsOnTheDiet,
	}, nil)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrMealNotFound
	}

	return s.GetMeal(ctx, userID, mealID)
}

func (s *Service) DeleteMeal(ctx context.Context, userID, mealID string) error {
	deleted, err := s.db.DeleteMeal(ctx, userID, mealID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMealNotFound
	}
	return nil
}

// DeleteMealsAsync enqueues a meal deletion job for background processing.
func (s *Service) DeleteMealsAsync(ctx context.Context, userID string, mealIDs models.DeleteMealsRequest) {
	s.mealsPurger.EnqueueJob(&models.MealsPurgeJob{
		UserID:        userID,
		MealsToDelete: funk.UniqString(mealIDs),
	})
}

// DeleteUser removes the account together with its meal history in one
// transaction.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := s.db.DeleteUser(ctx, userID, tx); err != nil {
		return err
	}

	return s.db.CommitTransaction(tx)
}

// GetUserMetrics computes the aggregate report over the user's whole history.
func (s *Service) GetUserMetrics(ctx context.Context, userID string) (metrics.Report, error) {
	meals, err := s.db.GetUserMeals(ctx, userID)
	if err != nil {
		return metrics.Report{}, err
	}

	return metrics.Compute(meals)
}

func (s *Service) GetMealsSummary(ctx context.Context, userID string) (summary.MealsSummary, error) {
	total, err := s.db.GetNumberOfUserMeals(ctx, userID, nil)
	if err != nil {
		return summary.MealsSummary{}, err
	}

	inTheDiet := true
	numberInTheDiet, err := s.db.GetNumberOfUserMeals(ctx, userID, &inTheDiet)
	if err != nil {
		return summary.MealsSummary{}, err
	}

	offTheDiet := false
	numberOffTheDiet, err := s.db.GetNumberOfUserMeals(ctx, userID, &offTheDiet)
	if err != nil {
		return summary.MealsSummary{}, err
	}

	return summary.ForMeals(total, numberInTheDiet, numberOffTheDiet), nil
}

func (s *Service) GetUsersSummary(ctx context.Context) (summary.UsersSummary, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return summary.UsersSummary{}, err
	}

	return summary.ForUsers(users), nil
}

// GetInternalStats returns global counters such as total meals and user count.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	meals, err := s.db.GetNumberOfMeals(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users: users,
		Meals: meals,
	}, nil
}
