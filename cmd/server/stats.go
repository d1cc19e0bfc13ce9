package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/marketing-jobs/internal/events"
	"github.com/phrazzld/marketing-jobs/internal/task"
	"github.com/robfig/cron/v3"
)

// statsReporter returns a job that logs queue occupancy and completion counts
func statsReporter(tasks task.Service, outcomes *events.OutcomeCounter, logger *slog.Logger) func() {
	log := logger.With("component", "stats_reporter")
	return func() {
		stats := tasks.QueueStats()
		counts := outcomes.Snapshot()
		log.Info("queue stats",
			"queued", stats.Queued,
			"running", stats.Running,
			"max_concurrent", stats.MaxConcurrent,
			"available_slots", stats.AvailableSlots,
			"succeeded", counts[string(task.StatusSucceeded)],
			"failed", counts[string(task.StatusFailed)],
			"cancelled", counts[string(task.StatusCancelled)])
	}
}

// startStatsSchedule runs report on the given cron schedule.
// An empty schedule disables reporting and returns a nil scheduler.
func startStatsSchedule(schedule string, report func(), logger *slog.Logger) (*cron.Cron, error) {
	if schedule == "" {
		logger.Info("Queue stats report disabled")
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, report); err != nil {
		return nil, fmt.Errorf("invalid stats report schedule %q: %w", schedule, err)
	}
	c.Start()

	logger.Info("Queue stats report scheduled", "schedule", schedule)
	return c, nil
}
