// Package app initializes and runs the main application service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/dietapi/internal/auth"
	"github.com/patric-chuzhbe/dietapi/internal/router"

	"github.com/patric-chuzhbe/dietapi/internal/config"
	"github.com/patric-chuzhbe/dietapi/internal/db/jsondb"
	"github.com/patric-chuzhbe/dietapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/dietapi/internal/db/postgresdb"
	"github.com/patric-chuzhbe/dietapi/internal/ipchecker"
	"github.com/patric-chuzhbe/dietapi/internal/logger"
	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/mealspurger"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/service"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

type usersKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error)

	GetUserBySessionToken(ctx context.Context, sessionToken string) (*user.User, error)

	DeleteUser(ctx context.Context, userID string, transaction *sql.Tx) error

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type mealsKeeper interface {
	InsertMeal(ctx context.Context, theMeal *meal.Meal, transaction *sql.Tx) error

	InsertMeals(ctx context.Context, meals []meal.Meal, transaction *sql.Tx) error

	GetMealByID(ctx context.Context, userID, mealID string) (*meal.Meal, bool, error)

	UpdateMeal(ctx context.Context, theMeal *meal.Meal, transaction *sql.Tx) (bool, error)

	DeleteMeal(ctx context.Context, userID, mealID string) (bool, error)

	GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error)

	GetNumberOfUserMeals(ctx context.Context, userID string, isOnTheDiet *bool) (int64, error)

	GetNumberOfMeals(ctx context.Context) (int64, error)

	RemoveUsersMeals(ctx context.Context, usersMeals map[string][]string) error
}

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	usersKeeper
	mealsKeeper
	transactioner
	pinger
	Close() error
}

// App encapsulates the configuration, HTTP handler, storage backend,
// and background services (such as the meals purger) needed to run the diet tracking service.
type App struct {
	cfg             *config.Config
	db              storage
	mealsPurger     *mealspurger.MealsPurger
	stopMealsPurger context.CancelFunc
	httpHandler     http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the background meals purger
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.mealsPurger = mealspurger.New(
		app.db,
		app.cfg.ChannelCapacity,
		app.cfg.DelayBetweenQueueFetches,
	)
	mealsPurgerRunCtx, stopMealsPurger := context.WithCancel(context.Background())
	app.stopMealsPurger = stopMealsPurger

	app.mealsPurger.Run(mealsPurgerRunCtx)
	app.mealsPurger.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `app.mealsPurger.ListenErrors()`:", zap.Error(err))
	})

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		app.db,
		auth.New(
			app.db,
			app.cfg.AuthCookieName,
			app.cfg.AuthCookieMaxAge,
		),
		ipChecker,
		service.New(app.db, app.mealsPurger),
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		a.stopMealsPurger()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
