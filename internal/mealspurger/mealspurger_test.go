package mealspurger

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/dietapi/internal/logger"
	"github.com/patric-chuzhbe/dietapi/internal/mockstorage"
	"github.com/patric-chuzhbe/dietapi/internal/models"
)

func TestMain(m *testing.M) {
	if err := logger.Init("debug"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestMealsPurgerBatchesTasksPerUser(t *testing.T) {
	db := &mockstorage.StorageMock{}
	batches := make(chan map[string][]string, 4)
	db.
		On("RemoveUsersMeals", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			batches <- args.Get(1).(map[string][]string)
		}).
		Return(nil)

	purger := New(db, 10, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	purger.Run(ctx)

	purger.EnqueueJob(&models.MealsPurgeJob{
		UserID:        "user-1",
		MealsToDelete: models.DeleteMealsRequest{"meal-1", "meal-2"},
	})
	purger.EnqueueJob(&models.MealsPurgeJob{
		UserID:        "user-2",
		MealsToDelete: models.DeleteMealsRequest{"meal-3"},
	})

	removed := map[string][]string{}
	total := 0
	deadline := time.After(2 * time.Second)
	for total < 3 {
		select {
		case batch := <-batches:
			for userID, mealIDs := range batch {
				removed[userID] = append(removed[userID], mealIDs...)
			}
			total = 0
			for _, mealIDs := range removed {
				total += len(mealIDs)
			}
		case <-deadline:
			require.FailNow(t, "timed out waiting for the purger to drain the queue")
		}
	}

	assert.ElementsMatch(t, []string{"meal-1", "meal-2"}, removed["user-1"])
	assert.ElementsMatch(t, []string{"meal-3"}, removed["user-2"])
}

func TestMealsPurgerReportsStorageErrors(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.
		On("RemoveUsersMeals", mock.Anything, mock.Anything).
		Return(errors.New("storage is down"))

	purger := New(db, 10, 20*time.Millisecond)
	errs := make(chan error, 1)
	purger.ListenErrors(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	purger.Run(ctx)

	purger.EnqueueJob(&models.MealsPurgeJob{
		UserID:        "user-1",
		MealsToDelete: models.DeleteMealsRequest{"meal-1"},
	})

	select {
	case err := <-errs:
		assert.EqualError(t, err, "storage is down")
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for the purger to report the error")
	}
}
