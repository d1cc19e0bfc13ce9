package events

import (
	"context"
	"log/slog"
	"maps"
	"sync"
)

// NewLoggingHandler returns a handler that records each completion at info
// level, or warn level for failures.
func NewLoggingHandler(logger *slog.Logger) EventHandler {
	log := logger.With("component", "completion_log")
	return EventHandlerFunc(func(ctx context.Context, event *TaskCompletedEvent) error {
		level := slog.LevelInfo
		if event.Status == "failed" {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "task completed",
			"task_id", event.TaskID,
			"task_type", event.TaskType,
			"owner_id", event.OwnerID,
			"status", event.Status,
			"error", event.Error)
		return nil
	})
}

// OutcomeCounter tallies completed tasks by terminal status.
type OutcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewOutcomeCounter creates an empty OutcomeCounter.
func NewOutcomeCounter() *OutcomeCounter {
	return &OutcomeCounter{counts: make(map[string]int)}
}

// HandleEvent implements EventHandler.
func (c *OutcomeCounter) HandleEvent(_ context.Context, event *TaskCompletedEvent) error {
	c.mu.Lock()
	c.counts[event.Status]++
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current counts.
func (c *OutcomeCounter) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}
