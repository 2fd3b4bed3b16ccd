package jsondb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/dietapi/internal/meal"
	"github.com/patric-chuzhbe/dietapi/internal/models"
	"github.com/patric-chuzhbe/dietapi/internal/user"
)

const (
	testDBFileName = "db_test.json"
)

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		theStorage, err := New(testDBFileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)
		defer func() {
			err := theStorage.Close()
			require.NoError(t, err)
			err = os.Remove(testDBFileName)
			require.NoError(t, err)
		}()

		userID, err := theStorage.CreateUser(
			context.Background(),
			&user.User{
				Name:         "John Doe",
				Email:        "john@example.com",
				SessionToken: "token-1",
			},
			nil,
		)
		assert.NoError(t, err, "The `theStorage.CreateUser()` should not return error")
		assert.NotEmpty(t, userID)

		_, err = theStorage.CreateUser(
			context.Background(),
			&user.User{
				Name:  "Second John",
				Email: "john@example.com",
			},
			nil,
		)
		assert.ErrorIs(t, err, models.ErrEmailAlreadyTaken)

		_, err = theStorage.CreateUser(
			context.Background(),
			&user.User{
				Name:         "Token thief",
				Email:        "thief@example.com",
				SessionToken: "token-1",
			},
			nil,
		)
		assert.ErrorIs(t, err, models.ErrSessionAlreadyBound)

		usr, err := theStorage.GetUserByID(context.Background(), userID, nil)
		assert.NoError(t, err)
		assert.Equal(t, "John Doe", usr.Name)

		usr, err = theStorage.GetUserByID(context.Background(), "nonexistent", nil)
		assert.NoError(t, err)
		assert.Equal(t, "", usr.ID)

		usr, err = theStorage.GetUserBySessionToken(context.Background(), "token-1")
		assert.NoError(t, err)
		assert.Equal(t, userID, usr.ID)

		usr, err = theStorage.GetUserBySessionToken(context.Background(), "unknown token")
		assert.NoError(t, err)
		assert.Equal(t, "", usr.ID)

		breakfast := &meal.Meal{
			UserID:      userID,
			Name:        "breakfast",
			IsOnTheDiet: true,
			CreatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		}
		err = theStorage.InsertMeal(context.Background(), breakfast, nil)
		assert.NoError(t, err, "The `theStorage.InsertMeal()` should not return error")
		assert.NotEmpty(t, breakfast.ID)

		err = theStorage.InsertMeals(
			context.Background(),
			[]meal.Meal{
				{
					UserID:      userID,
					Name:        "dinner",
					IsOnTheDiet: false,
					CreatedAt:   time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC),
				},
				{
					UserID:      userID,
					Name:        "lunch",
					IsOnTheDiet: true,
					CreatedAt:   time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
				},
			},
			nil,
		)
		assert.NoError(t, err, "The `theStorage.InsertMeals()` should not return error")

		meals, err := theStorage.GetUserMeals(context.Background(), userID)
		assert.NoError(t, err)
		require.Len(t, meals, 3)
		assert.Equal(
			t,
			[]string{"breakfast", "lunch", "dinner"},
			[]string{meals[0].Name, meals[1].Name, meals[2].Name},
			"the meals should be ordered by creation time",
		)

		total, err := theStorage.GetNumberOfUserMeals(context.Background(), userID, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), total)

		onTheDiet := true
		inTheDiet, err := theStorage.GetNumberOfUserMeals(context.Background(), userID, &onTheDiet)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), inTheDiet)

		offTheDiet := false
		offDiet, err := theStorage.GetNumberOfUserMeals(context.Background(), userID, &offTheDiet)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), offDiet)

		found, err := theStorage.UpdateMeal(
			context.Background(),
			&meal.Meal{
				ID:          breakfast.ID,
				UserID:      userID,
				Name:        "late breakfast",
				IsOnTheDiet: false,
			},
			nil,
		)
		assert.NoError(t, err)
		assert.True(t, found)

		updated, found, err := theStorage.GetMealByID(context.Background(), userID, breakfast.ID)
		assert.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "late breakfast", updated.Name)
		assert.False(t, updated.IsOnTheDiet)

		_, found, err = theStorage.GetMealByID(context.Background(), "another user", breakfast.ID)
		assert.NoError(t, err)
		assert.False(t, found, "a foreign meal should be invisible")

		found, err = theStorage.UpdateMeal(
			context.Background(),
			&meal.Meal{ID: breakfast.ID, UserID: "another user"},
			nil,
		)
		assert.NoError(t, err)
		assert.False(t, found, "a foreign meal should not be updatable")

		found, err = theStorage.DeleteMeal(context.Background(), "another user", breakfast.ID)
		assert.NoError(t, err)
		assert.False(t, found, "a foreign meal should not be deletable")

		found, err = theStorage.DeleteMeal(context.Background(), userID, breakfast.ID)
		assert.NoError(t, err)
		assert.True(t, found)

		total, err = theStorage.GetNumberOfUserMeals(context.Background(), userID, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), total)

		secondUserID, err := theStorage.CreateUser(
			context.Background(),
			&user.User{Email: "jane@example.com"},
			nil,
		)
		assert.NoError(t, err)
		err = theStorage.InsertMeal(
			context.Background(),
			&meal.Meal{UserID: secondUserID, Name: "snack", IsOnTheDiet: true},
			nil,
		)
		assert.NoError(t, err)

		err = theStorage.RemoveUsersMeals(
			context.Background(),
			map[string][]string{
				userID:       {meals[1].ID},
				secondUserID: {},
			},
		)
		assert.NoError(t, err, "The `theStorage.RemoveUsersMeals()` should not return error")

		total, err = theStorage.GetNumberOfUserMeals(context.Background(), userID, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)

		total, err = theStorage.GetNumberOfUserMeals(context.Background(), secondUserID, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), total, "an empty ID list should wipe the whole history")

		numberOfUsers, err := theStorage.GetNumberOfUsers(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(2), numberOfUsers)

		numberOfMeals, err := theStorage.GetNumberOfMeals(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(1), numberOfMeals)

		err = theStorage.DeleteUser(context.Background(), userID, nil)
		assert.NoError(t, err, "The `theStorage.DeleteUser()` should not return error")

		usr, err = theStorage.GetUserByID(context.Background(), userID, nil)
		assert.NoError(t, err)
		assert.Equal(t, "", usr.ID)

		numberOfMeals, err = theStorage.GetNumberOfMeals(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(0), numberOfMeals, "deleting a user should drop their meals")

		err = theStorage.Ping(context.Background())
		assert.NoError(t, err, "The jsondb.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The jsondb.Close() should not return error")

		reopened, err := New(testDBFileName)
		require.NoError(t, err)
		usr, err = reopened.GetUserBySessionToken(context.Background(), "unknown token")
		assert.NoError(t, err)
		assert.Equal(t, "", usr.ID)
		numberOfUsers, err = reopened.GetNumberOfUsers(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, int64(1), numberOfUsers, "the database should survive a close and reopen")
	})
}
