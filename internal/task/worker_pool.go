package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// JobSource is the admission side of the queue consumed by workers
type JobSource interface {
	DequeueNext(ctx context.Context) (*Job, error)
	Done(id string)
}

// WorkerPool manages a pool of worker goroutines that execute admitted jobs.
// A failing or panicking job is recorded as FAILED and never stops the pool.
type WorkerPool struct {
	// queue provides admitted jobs
	queue JobSource

	// registry resolves task types to executors
	registry *Registry

	tracker *ProgressTracker
	results *ResultStore

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx context.Context

	// cancel is the function to call to cancel the context
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when a job fails
	// If nil, errors are only logged
	errorHandler func(desc Descriptor, err error)

	// completionHandler is called after every terminal transition
	completionHandler func(desc Descriptor, result ResultRecord)

	startOnce sync.Once
	stopOnce  sync.Once
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(
	queue JobSource,
	registry *Registry,
	tracker *ProgressTracker,
	results *ResultStore,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:       queue,
		registry:    registry,
		tracker:     tracker,
		results:     results,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for job failures
func (p *WorkerPool) SetErrorHandler(handler func(desc Descriptor, err error)) {
	p.errorHandler = handler
}

// SetCompletionHandler registers a callback invoked after each terminal transition
func (p *WorkerPool) SetCompletionHandler(handler func(desc Descriptor, result ResultRecord)) {
	p.completionHandler = handler
}

// Start launches the worker goroutines. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool", "worker_count", p.workerCount)
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Stop cancels running jobs cooperatively and waits for all workers to exit
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Info("worker pool stopped")
	})
}

// worker pulls admitted jobs until the queue closes or the pool stops
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		job, err := p.queue.DequeueNext(p.ctx)
		if err != nil {
			p.logger.Debug("stopping worker", "worker_id", id, "reason", err)
			return
		}
		p.process(job, id)
	}
}

// process runs a single job and records its outcome
func (p *WorkerPool) process(job *Job, workerID int) {
	desc := job.Descriptor
	logger := p.logger.With(
		"task_id", desc.ID,
		"task_type", desc.Type,
		"priority", desc.Priority.String(),
		"worker_id", workerID,
	)

	executor, ok := p.registry.Lookup(desc.Type)
	if !ok {
		err := fmt.Errorf("%w: %q has no registered executor", ErrUnknownTaskType, desc.Type)
		logger.Warn("rejecting task with unknown type")
		result := p.settle(logger, desc, StatusFailed, nil, err)
		p.queue.Done(desc.ID)
		p.notify(desc, result, err)
		return
	}

	if err := p.tracker.UpdateStatus(desc.ID, StatusRunning, "running"); err != nil {
		// The record vanished or was settled elsewhere; nothing to run for.
		p.queue.Done(desc.ID)
		logger.Error("failed to mark task running", "error", err)
		return
	}

	logger.Info("processing task")
	started := time.Now()

	data, err := p.execute(job, executor)
	cancelled := job.ctx.Err() != nil

	status := StatusFailed
	switch {
	case err == nil:
		logger.Info("task completed successfully", "duration", time.Since(started))
		status = StatusSucceeded
	case cancelled && errors.Is(err, context.Canceled):
		logger.Info("task cancelled", "duration", time.Since(started))
		status, data, err = StatusCancelled, nil, nil
	default:
		logger.Error("task execution failed", "error", err, "duration", time.Since(started))
		data = nil
	}

	// The slot stays held until the record leaves RUNNING.
	result := p.settle(logger, desc, status, data, err)
	p.queue.Done(desc.ID)
	p.notify(desc, result, err)
}

// execute invokes the executor, converting a panic into an error
func (p *WorkerPool) execute(job *Job, executor Executor) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				"task_id", job.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	reporter := &jobReporter{ctx: job.ctx, id: job.ID, tracker: p.tracker}
	return executor.Execute(job.ctx, job.Parameters, reporter)
}

// finish settles a job that never held a slot and notifies handlers
func (p *WorkerPool) finish(logger *slog.Logger, desc Descriptor, status Status, data any, err error) {
	result := p.settle(logger, desc, status, data, err)
	p.notify(desc, result, err)
}

// settle writes the result record, then the terminal status
func (p *WorkerPool) settle(logger *slog.Logger, desc Descriptor, status Status, data any, err error) ResultRecord {
	result := ResultRecord{
		TaskType:    desc.Type,
		Status:      status,
		Data:        data,
		CompletedAt: time.Now(),
	}
	switch status {
	case StatusSucceeded:
		result.Message = "completed"
	case StatusCancelled:
		result.Message = "cancelled"
	default:
		result.Message = "failed"
		result.Error = err.Error()
	}

	if putErr := p.results.Put(desc.ID, result); putErr != nil {
		logger.Error("failed to store task result", "error", putErr)
	}
	if updateErr := p.tracker.UpdateStatus(desc.ID, status, result.Message); updateErr != nil {
		logger.Error("failed to update task status", "status", status, "error", updateErr)
	}
	return result
}

func (p *WorkerPool) notify(desc Descriptor, result ResultRecord, err error) {
	if result.Status == StatusFailed && p.errorHandler != nil {
		p.errorHandler(desc, err)
	}
	if p.completionHandler != nil {
		p.completionHandler(desc, result)
	}
}

// jobReporter forwards executor progress into the tracker
type jobReporter struct {
	ctx     context.Context
	id      string
	tracker *ProgressTracker
}

// Report records progress and returns the cancellation cause once the job is cancelled
func (r *jobReporter) Report(percent int, message string) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	return r.tracker.UpdateProgress(r.id, percent, message)
}
