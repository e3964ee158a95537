package housekeeping

import (
	"context"
	"time"

	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/repository"
)

const defaultInterval = 10 * time.Minute

// Task removes or transitions stale records and returns how many were touched
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs tasks periodically until context is done
type Sweeper struct {
	interval time.Duration
	tasks    []Task
	logger   logger.Logger
	now      func() time.Time
}

func New(interval time.Duration, l logger.Logger, tasks ...Task) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Sweeper{
		interval: interval,
		tasks:    tasks,
		logger:   l,
		now:      time.Now,
	}
}

// StorageTasks drops expired reset tokens and expires overdue subscriptions
func StorageTasks(storage repository.Storage) []Task {
	return []Task{
		{Name: "reset_tokens", Run: storage.ResetToken().DeleteExpired},
		{Name: "subscriptions", Run: storage.Subscription().ExpireOverdue},
	}
}

// Run starts sweeping in background. Returned channel is closed when sweeper stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting sweeper", "interval", s.interval, "tasks", len(s.tasks))

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Sweeper stopped by context")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()

	return idleStopped
}

// Sweep runs every task once. Failed task is logged and does not stop the others
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()

	for _, task := range s.tasks {
		count, err := task.Run(ctx, now)
		if err != nil {
			s.logger.Error("Sweep task failed", "task", task.Name, "error", err)
			continue
		}
		if count > 0 {
			s.logger.Info("Sweep task done", "task", task.Name, "count", count)
		}
	}
}
