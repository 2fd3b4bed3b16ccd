// Package jsondb keeps the whole database in memory and persists it to a
// JSON file on Close. It backs the application when no PostgreSQL DSN is
// configured.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

type JSONDB struct {
	fileName string
	Cache    CacheStruct
}

// CacheStruct is the serialized shape of the database. The secondary maps
// index users by email and session token; UsersMeals keeps per-user meal IDs
// in insertion order.
type CacheStruct struct {
	Users               map[string]*user.User
	UsersByEmail        map[string]string
	UsersBySessionToken map[string]string
	Meals               map[string]*meal.Meal
	UsersMeals          map[string][]string
}

// NewCache returns a CacheStruct with all maps initialized.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:               map[string]*user.User{},
		UsersByEmail:        map[string]string{},
		UsersBySessionToken: map[string]string{},
		Meals:               map[string]*meal.Meal{},
		UsersMeals:          map[string][]string{},
	}
}

// ensureMaps repairs nil maps after decoding an older or partial DB file.
func (cache *CacheStruct) ensureMaps() {
	if cache.Users == nil {
		cache.Users = map[string]*user.User{}
	}
	if cache.UsersByEmail == nil {
		cache.UsersByEmail = map[string]string{}
	}
	if cache.UsersBySessionToken == nil {
		cache.UsersBySessionToken = map[string]string{}
	}
	if cache.Meals == nil {
		cache.Meals = map[string]*meal.Meal{}
	}
	if cache.UsersMeals == nil {
		cache.UsersMeals = map[string][]string{}
	}
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {},
	"UsersByEmail": {},
	"UsersBySessionToken": {},
	"Meals": {},
	"UsersMeals": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cacheMap)
	if err != nil {
		return err
	}

	return nil
}

func New(fileName string) (*JSONDB, error) {
	theDB := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(theDB.fileName, &theDB.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		err := initDBFile(fileName)
		if err != nil {
			return nil, err
		}
		err = parseJSONFile(theDB.fileName, &theDB.Cache)
		if err != nil {
			return nil, err
		}
	}

	theDB.Cache.ensureMaps()

	return &theDB, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	err := writeToJSONFile(db.fileName, db.Cache)
	if err != nil {
		return err
	}

	return nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

// CreateUser stores a new user, filling in a missing ID and creation time.
// Email and session-token uniqueness is enforced against the indexes.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	if usr.Email != "" {
		if _, taken := db.Cache.UsersByEmail[usr.Email]; taken {
			return "", models.ErrEmailAlreadyTaken
		}
	}

	if usr.SessionToken != "" {
		if _, taken := db.Cache.UsersBySessionToken[usr.SessionToken]; taken {
			return "", models.ErrSessionAlreadyBound
		}
	}

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = time.Now()
	}

	db.Cache.Users[usr.ID] = usr
	if usr.Email != "" {
		db.Cache.UsersByEmail[usr.Email] = usr.ID
	}
	if usr.SessionToken != "" {
		db.Cache.UsersBySessionToken[usr.SessionToken] = usr.ID
	}

	return usr.ID, nil
}

// GetUserByID returns the stored user, or a user with an empty ID field when
// there is no such record.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error) {
	usr, found := db.Cache.Users[userID]
	if !found {
		return &user.User{ID: ""}, nil
	}

	return usr, nil
}

// GetUserBySessionToken resolves the opaque session token to its user, or a
// user with an empty ID field when the token is unknown.
func (db *JSONDB) GetUserBySessionToken(ctx context.Context, sessionToken string) (*user.User, error) {
	userID, found := db.Cache.UsersBySessionToken[sessionToken]
	if !found {
		return &user.User{ID: ""}, nil
	}

	return db.GetUserByID(ctx, userID, nil)
}

// DeleteUser removes the user together with their meal history and indexes.
func (db *JSONDB) DeleteUser(ctx context.Context, userID string, transaction *sql.Tx) error {
	usr, found := db.Cache.Users[userID]
	if !found {
		return nil
	}

	for _, mealID := range db.Cache.UsersMeals[userID] {
		delete(db.Cache.Meals, mealID)
	}
	delete(db.Cache.UsersMeals, userID)

	if usr.Email != "" {
		delete(db.Cache.UsersByEmail, usr.Email)
	}
	if usr.SessionToken != "" {
		delete(db.Cache.UsersBySessionToken, usr.SessionToken)
	}
	delete(db.Cache.Users, userID)

	return nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return int64(len(db.Cache.Users)), nil
}

// InsertMeal stores a single meal, filling in a missing ID and creation time.
func (db *JSONDB) InsertMeal(
	ctx context.Context,
	theMeal *meal.Meal,
	transaction *sql.Tx,
) error {
	if theMeal.ID == "" {
		theMeal.ID = uuid.New().String()
	}

	if theMeal.CreatedAt.IsZero() {
		theMeal.CreatedAt = time.Now()
	}

	db.Cache.Meals[theMeal.ID] = theMeal
	db.Cache.UsersMeals[theMeal.UserID] = append(db.Cache.UsersMeals[theMeal.UserID], theMeal.ID)

	return nil
}

func (db *JSONDB) InsertMeals(
	ctx context.Context,
	meals []meal.Meal,
	transaction *sql.Tx,
) error {
	for i := range meals {
		err := db.InsertMeal(ctx, &meals[i], transaction)
		if err != nil {
			return err
		}
	}

	return nil
}

func (db *JSONDB) GetMealByID(
	ctx context.Context,
	userID,
	mealID string,
) (*meal.Meal, bool, error) {
	theMeal, found := db.Cache.Meals[mealID]
	if !found || theMeal.UserID != userID {
		return nil, false, nil
	}

	return theMeal, true, nil
}

func (db *JSONDB) UpdateMeal(
	ctx context.Context,
	theMeal *meal.Meal,
	transaction *sql.Tx,
) (bool, error) {
	stored, found := db.Cache.Meals[theMeal.ID]
	if !found || stored.UserID != theMeal.UserID {
		return false, nil
	}

	stored.Name = theMeal.Name
	stored.Description = theMeal.Description
	stored.IsOnTheDiet = theMeal.IsOnTheDiet

	return true, nil
}

func (db *JSONDB) DeleteMeal(
	ctx context.Context,
	userID,
	mealID string,
) (bool, error) {
	theMeal, found := db.Cache.Meals[mealID]
	if !found || theMeal.UserID != userID {
		return false, nil
	}

	delete(db.Cache.Meals, mealID)
	db.Cache.UsersMeals[userID] = funk.FilterString(
		db.Cache.UsersMeals[userID],
		func(id string) bool { return id != mealID },
	)

	return true, nil
}

// GetUserMeals returns the user's meal history ordered by creation time
// ascending. Insertion order breaks ties.
func (db *JSONDB) GetUserMeals(ctx context.Context, userID string) ([]meal.Meal, error) {
	result := []meal.Meal{}
	for _, mealID := range db.Cache.UsersMeals[userID] {
		theMeal, found := db.Cache.Meals[mealID]
		if !found {
			continue
		}
		result = append(result, *theMeal)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (db *JSONDB) GetNumberOfUserMeals(
	ctx context.Context,
	userID string,
	isOnTheDiet *bool,
) (int64, error) {
	var count int64
	for _, mealID := range db.Cache.UsersMeals[userID] {
		theMeal, found := db.Cache.Meals[mealID]
		if !found {
			continue
		}
		if isOnTheDiet == nil || theMeal.IsOnTheDiet == *isOnTheDiet {
			count++
		}
	}

	return count, nil
}

func (db *JSONDB) GetNumberOfMeals(ctx context.Context) (int64, error) {
	return int64(len(db.Cache.Meals)), nil
}

// RemoveUsersMeals deletes batches of meals per user ID. An empty meal ID
// list wipes the whole history of that user. Unknown IDs are skipped.
func (db *JSONDB) RemoveUsersMeals(
	ctx context.Context,
	usersMeals map[string][]string,
) error {
	for userID, mealIDs := range usersMeals {
		if len(mealIDs) == 0 {
			for _, mealID := range db.Cache.UsersMeals[userID] {
				delete(db.Cache.Meals, mealID)
			}
			delete(db.Cache.UsersMeals, userID)

			continue
		}

		for _, mealID := range mealIDs {
			_, err := db.DeleteMeal(ctx, userID, mealID)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
