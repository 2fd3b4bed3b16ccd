// Package mealspurger implements the background worker that drains queued
// meal-deletion jobs and removes the meals in per-user batches.
package mealspurger

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/dietapi/internal/db/storage"
	"github.com/patric-chuzhbe/dietapi/internal/logger"
	"github.com/patric-chuzhbe/dietapi/internal/models"
)

type task struct {
	userID       string
	mealToDelete string
}

// MealsPurger accumulates deletion tasks in a buffered queue and flushes
// them to storage on a ticker.
type MealsPurger struct {
	queue                    chan *task
	db                       storage.Storage
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
}

func New(
	db storage.Storage,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *MealsPurger {
	return &MealsPurger{
		db:                       db,
		queue:                    make(chan *task, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
	}
}

// ListenErrors forwards storage errors from the background goroutine to the
// given callback.
func (p *MealsPurger) ListenErrors(callback func(error)) {
	go func() {
		for err := range p.errorChannel {
			callback(err)
		}
	}()
}

func (p *MealsPurger) collectMealsByUser(tasks []task) map[string][]string {
	result := map[string][]string{}
	for _, t := range tasks {
		_, ok := result[t.userID]
		if !ok {
			result[t.userID] = []string{}
		}
		result[t.userID] = append(result[t.userID], t.mealToDelete)
	}

	return result
}

// Run starts the background processing loop. It stops when ctx is canceled;
// tasks still queued at that point are dropped.
func (p *MealsPurger) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.delayBetweenQueueFetches)
		defer ticker.Stop()

		var tasks []task

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-p.queue:
				tasks = append(tasks, *t)
			case <-ticker.C:
				if len(tasks) == 0 {
					continue
				}
				err := p.db.RemoveUsersMeals(ctx, p.collectMealsByUser(tasks))
				if err != nil {
					p.errorChannel <- err
					continue
				}
				logger.Log.Infof("processed removing of %d meals", len(tasks))
				tasks = nil
			}
		}
	}()
}

// EnqueueJob splits a purge job into per-meal tasks and queues them.
func (p *MealsPurger) EnqueueJob(job *models.MealsPurgeJob) {
	for _, mealID := range job.MealsToDelete {
		p.queue <- &task{
			userID:       job.UserID,
			mealToDelete: mealID,
		}
	}
}
