package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// GatewayConfig holds configuration for the task gateway
type GatewayConfig struct {
	Queue QueueConfig

	// Results bounds retention of completed outcomes
	Results RetentionConfig

	// Progress bounds retention of terminal progress records
	Progress RetentionConfig

	// StrictTaskTypes rejects unknown task types at submission instead of
	// failing them at dispatch
	StrictTaskTypes bool
}

// DefaultGatewayConfig returns a GatewayConfig with reasonable defaults
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Queue: QueueConfig{
			MaxConcurrentJobs: 4,
		},
		Results: RetentionConfig{
			TTL:      time.Hour,
			Capacity: 10000,
		},
		Progress: RetentionConfig{
			TTL:      time.Hour,
			Capacity: 10000,
		},
	}
}

// Gateway is the single entry point to the job subsystem. It owns the queue,
// the worker pool and both record stores.
type Gateway struct {
	queue    *PriorityQueue
	pool     *WorkerPool
	tracker  *ProgressTracker
	results  *ResultStore
	registry *Registry
	strict   bool
	logger   *slog.Logger
	now      func() time.Time
}

var _ Service = (*Gateway)(nil)

// NewGateway wires a queue, pool and stores around the given registry.
// Workers are not started until Start is called.
func NewGateway(config GatewayConfig, registry *Registry, logger *slog.Logger) *Gateway {
	logger = logger.With("component", "task_gateway")

	queue := NewPriorityQueue(config.Queue, logger.With("component", "priority_queue"))
	tracker := NewProgressTracker(config.Progress)
	results := NewResultStore(config.Results)

	pool := NewWorkerPool(
		queue,
		registry,
		tracker,
		results,
		WorkerPoolConfig{WorkerCount: queue.Stats().MaxConcurrent},
		logger.With("component", "worker_pool"),
	)

	return &Gateway{
		queue:    queue,
		pool:     pool,
		tracker:  tracker,
		results:  results,
		registry: registry,
		strict:   config.StrictTaskTypes,
		logger:   logger,
		now:      time.Now,
	}
}

// SetCompletionHandler registers a callback invoked after every terminal
// transition, including cancellation of queued tasks
func (g *Gateway) SetCompletionHandler(handler func(desc Descriptor, result ResultRecord)) {
	g.pool.SetCompletionHandler(handler)
}

// SetErrorHandler registers a callback invoked when a task fails
func (g *Gateway) SetErrorHandler(handler func(desc Descriptor, err error)) {
	g.pool.SetErrorHandler(handler)
}

// Start begins executing queued tasks
func (g *Gateway) Start() {
	g.pool.Start()
}

// Stop closes the queue, cancels tasks that never started, signals running
// tasks and waits for workers to exit
func (g *Gateway) Stop() {
	for _, desc := range g.queue.Close() {
		g.pool.finish(g.logger.With("task_id", desc.ID), desc, StatusCancelled, nil, nil)
	}
	g.pool.Stop()
}

// Submit creates a QUEUED task and hands it to the queue.
// The progress record is readable before Submit returns.
func (g *Gateway) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if !req.Priority.Valid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidPriority, int(req.Priority))
	}
	if g.strict {
		if _, ok := g.registry.Lookup(req.Type); !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, req.Type)
		}
	}

	desc := newDescriptor(uuid.NewString(), req.Type, req.Parameters, req.OwnerID, req.Priority, g.now())

	if err := g.tracker.Create(desc); err != nil {
		return "", fmt.Errorf("failed to create task record: %w", err)
	}
	if err := g.queue.Enqueue(desc); err != nil {
		g.tracker.Remove(desc.ID)
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	g.logger.DebugContext(ctx, "task submitted",
		"task_id", desc.ID,
		"task_type", desc.Type,
		"owner_id", desc.OwnerID,
		"priority", desc.Priority.String())
	return desc.ID, nil
}

// GetProgress returns the current progress of a task
func (g *Gateway) GetProgress(id string) (ProgressRecord, error) {
	return g.tracker.Get(id)
}

// GetResult returns the outcome of a finished task
func (g *Gateway) GetResult(id string) (ResultRecord, error) {
	return g.results.Get(id)
}

// Cancel removes a queued task, recording it as CANCELLED, or signals a
// running one. Cancelling a running task is best effort: the executor
// observes the signal at its next progress report or context check.
func (g *Gateway) Cancel(id string) bool {
	desc, outcome := g.queue.Cancel(id)
	switch outcome {
	case CancelRemoved:
		g.logger.Info("cancelled queued task", "task_id", id)
		g.pool.finish(g.logger.With("task_id", id), desc, StatusCancelled, nil, nil)
		return true
	case CancelSignalled:
		// A job keeps its slot until it has settled, so it may already be terminal.
		if rec, err := g.tracker.Get(id); err == nil && rec.Status.IsTerminal() {
			return false
		}
		g.logger.Info("signalled running task to cancel", "task_id", id)
		return true
	default:
		return false
	}
}

// QueueStats returns queue occupancy counters
func (g *Gateway) QueueStats() Stats {
	return g.queue.Stats()
}

// ListByOwner returns progress records for ownerID, oldest first
func (g *Gateway) ListByOwner(ownerID string) []ProgressRecord {
	return g.tracker.ListByOwner(ownerID)
}
