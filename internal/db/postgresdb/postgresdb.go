// Package postgresdb provides a PostgreSQL-based implementation of the storage
// interface for persisting users and their meal history.
// It supports transactional operations, batch meal removal, and session lookup.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

const pgUniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the application storage.
// It handles all persistence operations via a PostgreSQL database connection.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
// Optionally accepts initialization options, such as WithDBPreReset.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// mapUniqueViolation converts a unique-constraint failure on the users table
// into the sentinel error the service layer matches on.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return err
	}

	switch pgErr.ConstraintName {
	case "users_email_key":
		return models.ErrEmailAlreadyTaken

	case "users_session_token_key":
		return models.ErrSessionAlreadyBound
	}

	return err
}

func nullIfEmpty(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// CreateUser inserts a new user record into the database. A missing ID and
// creation time are filled in. Returns the created user ID.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	var database executor
	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = time.Now()
	}

	_, err := database.ExecContext(
		ctx,
		`
			INSERT INTO users (id, name, email, address, weight, height, session_token, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
		usr.ID,
		usr.Name,
		nullIfEmpty(usr.Email),
		usr.Address,
		usr.Weight,
		usr.Height,
		nullIfEmpty(usr.SessionToken),
		usr.CreatedAt,
	)
	if err != nil {
		return "", mapUniqueViolation(err)
	}

	return usr.ID, nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var usr user.User
	var email, sessionToken sql.NullString

	err := row.Scan(
		&usr.ID,
		&usr.Name,
		&email,
		&usr.Address,
		&usr.Weight,
		&usr.Height,
		&sessionToken,
		&usr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &user.User{ID: ""}, nil
		}
		return &user.User{ID: ""}, err
	}

	usr.Email = email.String
	usr.SessionToken = sessionToken.String

	return &usr, nil
}

// GetUserByID fetches a user by their UUID from the database.
// If the user does not exist, it returns a user with an empty ID field.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error) {
	var database queryer

	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	if userID == "" {
		return &user.User{ID: ""}, nil
	}

	row := database.QueryRowContext(
		ctx,
		`
			SELECT id, name, email, address, weight, height, session_token, created_at
				FROM users
				WHERE id = $1
		`,
		userID,
	)

	return scanUser(row)
}

// GetUserBySessionToken resolves the opaque session token to its user.
// An unknown token yields a user with an empty ID field.
func (db *PostgresDB) GetUserBySessionToken(ctx context.Context, sessionToken string) (*user.User, error) {
	if sessionToken == "" {
		return &user.User{ID: ""}, nil
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, name, email, address, weight, height, session_token, created_at
				FROM users
				WHERE session_token = $1
		`,
		sessionToken,
	)

	return scanUser(row)
}

// DeleteUser removes the user together with their meal history.
// The meals go first because the foreign key carries no cascade clause.
func (db *PostgresDB) DeleteUser(ctx context.Context, userID string, transaction *sql.Tx) error {
	var database executor

	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	_, err := database.ExecContext(
		ctx,
		`DELETE FROM meals WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return err
	}

	_, err = database.ExecContext(
		ctx,
		`DELETE FROM users WHERE id = $1`,
		userID,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetNumberOfUsers returns the total count of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM users`,
	)
	var count int64
	err := row.Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// InsertMeal stores a single meal record. Missing ID and creation time are
// filled in before the insert.
func (db *PostgresDB) InsertMeal(
	ctx context.Context,
	theMeal *meal.Meal,
	transaction *sql.Tx,
) error {
	var database executor

	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	if theMeal.ID == "" {
		theMeal.ID = uuid.New().String()
	}

	if theMeal.CreatedAt.IsZero() {
		theMeal.CreatedAt = time.Now()
	}

	_, err := database.ExecContext(
		ctx,
		`
			INSERT INTO meals (id, user_id, name, description, is_on_the_diet, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
		`,
		theMeal.ID,
		theMeal.UserID,
		theMeal.Name,
		theMeal.Description,
		theMeal.IsOnTheDiet,
		theMeal.CreatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// InsertMeals stores a batch of meal records in a single multi-row INSERT.
// This operation is performed within the provided transaction.
func (db *PostgresDB) InsertMeals(
	ctx context.Context,
	meals []meal.Meal,
	transaction *sql.Tx,
) error {
	mealsTableValues := prepareMealsTableValues(meals)
	mealsTableValuesLen := len(mealsTableValues)
	if mealsTableValuesLen == 0 {
		return nil
	}
	mealsTableValuesPlaceholders := make([]string, mealsTableValuesLen)
	for i := range mealsTableValuesPlaceholders {
		mealsTableValuesPlaceholders[i] = fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			i*6+1, i*6+2, i*6+3, i*6+4, i*6+5, i*6+6,
		)
	}
	mealsTableValuesPlaceholdersAsString := strings.Join(mealsTableValuesPlaceholders, ",")
	queryParams := funk.Flatten(mealsTableValues).([]interface{})

	var database executor
	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	_, err := database.ExecContext(
		ctx,
		fmt.Sprintf(
			`INSERT INTO meals (id, user_id, name, description, is_on_the_diet, created_at) VALUES %s`,
			mealsTableValuesPlaceholdersAsString,
		),
		queryParams...,
	)
	if err != nil {
		return err
	}

	return nil
}

func scanMeal(row *sql.Row) (*meal.Meal, bool, error) {
	var theMeal meal.Meal
	err := row.Scan(
		&theMeal.ID,
		&theMeal.UserID,
		&theMeal.Name,
		&theMeal.Description,
		&theMeal.IsOnTheDiet,
		&theMeal.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &theMeal, true, nil
}

// GetMealByID retrieves a meal restricted to the given owner.
// Returns a boolean indicating presence.
func (db *PostgresDB) GetMealByID(
	ctx context.Context,
	userID,
	mealID string,
) (*meal.Meal, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`
			SELECT id, user_id, name, description, is_on_the_diet, created_at
				FROM meals
				WHERE id = $1 AND user_id = $2
		`,
		mealID,
		userID,
	)

	return scanMeal(row)
}

// UpdateMeal rewrites the mutable fields of a meal restricted to its owner.
// Returns false when no such meal exists for that user.
func (db *PostgresDB) UpdateMeal(
	ctx context.Context,
	theMeal *meal.Meal,
	transaction *sql.Tx,
) (bool, error) {
	var database executor

	if transaction == nil {
		database = db.database
	} else {
		database = transaction
	}

	result, err := database.ExecContext(
		ctx,
		`
			UPDATE meals
				SET name = $1,
					description = $2,
					is_on_the_diet = $3
				WHERE id = $4 AND user_id = $5
		`,
		theMeal.Name,
		theMeal.Description,
		theMeal.IsOnTheDiet,
		theMeal.ID,
		theMeal.UserID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// DeleteMeal removes a meal restricted to its owner.
// Returns false when no such meal exists for that user.
func (db *PostgresDB) DeleteMeal(
	ctx context.Context,
	userID,
	mealID string,
) (bool, error) {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM meals WHERE id = $1 AND user_id = $2`,
		mealID,
		userID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// GetUserMeals retrieves the full meal history of a user ordered by creation
// time ascending.
func (db *PostgresDB) GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, name, description, is_on_the_diet, created_at
				FROM meals
				WHERE user_id = $1
				ORDER BY created_at
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []meal.Meal{}
	for rows.Next() {
		var theMeal meal.Meal
		err = rows.Scan(
			&theMeal.ID,
			&theMeal.UserID,
			&theMeal.Name,
			&theMeal.Description,
			&theMeal.IsOnTheDiet,
			&theMeal.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		result = append(result, theMeal)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetNumberOfUserMeals counts the meals of a user, optionally narrowed to
// those within or outside the diet.
func (db *PostgresDB) GetNumberOfUserMeals(
	ctx context.Context,
	userID string,
	isOnTheDiet *bool,
) (int64, error) {
	var row *sql.Row
	if isOnTheDiet == nil {
		row = db.database.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM meals WHERE user_id = $1`,
			userID,
		)
	} else {
		row = db.database.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM meals WHERE user_id = $1 AND is_on_the_diet = $2`,
			userID,
			*isOnTheDiet,
		)
	}

	var count int64
	err := row.Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetNumberOfMeals returns the total count of meals across all users.
func (db *PostgresDB) GetNumberOfMeals(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM meals`,
	)
	var count int64
	err := row.Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// RemoveUsersMeals deletes batches of meals per user ID.
// An empty meal ID list wipes the whole history of that user.
// It executes the deletions within a transaction to ensure consistency.
func (db *PostgresDB) RemoveUsersMeals(
	ctx context.Context,
	usersMeals map[string][]string,
) error {
	transaction, err := db.database.Begin()
	if err != nil {
		return err
	}

	for userID, mealIDs := range usersMeals {
		if len(mealIDs) == 0 {
			_, err := transaction.ExecContext(
				ctx,
				`DELETE FROM meals WHERE user_id = $1`,
				userID,
			)
			if err != nil {
				err2 := transaction.Rollback()
				if err2 != nil {
					return err2
				}
				return err
			}

			continue
		}

		for _, mealID := range mealIDs {
			_, err := transaction.ExecContext(
				ctx,
				`DELETE FROM meals WHERE user_id = $1 AND id = $2`,
				userID,
				mealID,
			)
			if err != nil {
				err2 := transaction.Rollback()
				if err2 != nil {
					return err2
				}
				return err
			}
		}
	}

	err = transaction.Commit()
	if err != nil {
		return err
	}

	return nil
}

// CommitTransaction commits the given SQL transaction.
// Returns an error if the commit operation fails.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
// If rollback fails, the returned error describes the issue.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	err := db.database.Close()
	if err != nil {
		return err
	}

	return nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func prepareMealsTableValues(meals []meal.Meal) [][]interface{} {
	result := [][]interface{}{}
	for i := range meals {
		theMeal := &meals[i]
		if theMeal.ID == "" {
			theMeal.ID = uuid.New().String()
		}
		if theMeal.CreatedAt.IsZero() {
			theMeal.CreatedAt = time.Now()
		}

		result = append(result, []interface{}{
			theMeal.ID,
			theMeal.UserID,
			theMeal.Name,
			theMeal.Description,
			theMeal.IsOnTheDiet,
			theMeal.CreatedAt,
		})
	}

	return result
}
