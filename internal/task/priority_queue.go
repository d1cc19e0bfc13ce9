package task

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// QueueConfig holds configuration options for the priority queue
type QueueConfig struct {
	// MaxConcurrentJobs is the admission ceiling for running jobs.
	// If zero or negative, defaults to 1.
	MaxConcurrentJobs int

	// MaxBacklog caps the number of queued jobs. Zero means unbounded.
	MaxBacklog int
}

// Stats is a snapshot of queue occupancy
type Stats struct {
	Queued         int `json:"queued"`
	Running        int `json:"running"`
	MaxConcurrent  int `json:"max_concurrent"`
	AvailableSlots int `json:"available_slots"`
}

// CancelOutcome describes what Cancel did to a job
type CancelOutcome int

const (
	// CancelNone means the id was neither queued nor running
	CancelNone CancelOutcome = iota
	// CancelRemoved means a queued job was removed before dispatch
	CancelRemoved
	// CancelSignalled means a running job's context was cancelled
	CancelSignalled
)

// Job is an admitted descriptor together with its cancellation signal
type Job struct {
	Descriptor
	ctx context.Context
}

// Context returns the job's cancellation signal
func (j *Job) Context() context.Context {
	return j.ctx
}

type runningJob struct {
	cancel    context.CancelFunc
	cancelled bool
}

// PriorityQueue orders pending jobs by priority, FIFO within a priority band,
// and admits at most MaxConcurrentJobs of them at a time. Enqueue never
// blocks; DequeueNext blocks until a slot is free and work is available.
type PriorityQueue struct {
	mu      sync.Mutex
	bands   [numPriorities]*list.List
	index   map[string]*list.Element
	running map[string]*runningJob

	// changed is closed and replaced whenever a waiter might make progress
	changed chan struct{}
	closed  bool

	maxConcurrent int
	maxBacklog    int

	// counters are written under mu and read lock-free by Stats
	queued   atomic.Int64
	inFlight atomic.Int64

	logger *slog.Logger
}

// NewPriorityQueue creates an empty queue
func NewPriorityQueue(config QueueConfig, logger *slog.Logger) *PriorityQueue {
	maxConcurrent := config.MaxConcurrentJobs
	if maxConcurrent <= 0 {
		maxConcurrent = 1
		logger.Warn("invalid max concurrent jobs specified, using default",
			"specified", config.MaxConcurrentJobs,
			"default", 1)
	}

	q := &PriorityQueue{
		index:         make(map[string]*list.Element),
		running:       make(map[string]*runningJob),
		changed:       make(chan struct{}),
		maxConcurrent: maxConcurrent,
		maxBacklog:    max(config.MaxBacklog, 0),
		logger:        logger,
	}
	for i := range q.bands {
		q.bands[i] = list.New()
	}
	return q
}

// broadcast wakes every goroutine blocked in DequeueNext. Caller holds mu.
func (q *PriorityQueue) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Enqueue appends the descriptor to its priority band.
// It fails only when the queue is closed or the backlog cap is reached.
func (q *PriorityQueue) Enqueue(desc Descriptor) error {
	if !desc.Priority.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, int(desc.Priority))
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.maxBacklog > 0 && len(q.index) >= q.maxBacklog {
		return fmt.Errorf("%w: backlog capacity %d reached", ErrQueueFull, q.maxBacklog)
	}
	if _, exists := q.index[desc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, desc.ID)
	}

	q.index[desc.ID] = q.bands[desc.Priority].PushBack(desc)
	q.queued.Add(1)
	q.broadcast()

	q.logger.Debug("task enqueued",
		"task_id", desc.ID,
		"task_type", desc.Type,
		"priority", desc.Priority.String(),
		"queued", len(q.index))
	return nil
}

// popLocked removes the oldest descriptor of the highest non-empty band
func (q *PriorityQueue) popLocked() (Descriptor, bool) {
	for p := numPriorities - 1; p >= 0; p-- {
		front := q.bands[p].Front()
		if front == nil {
			continue
		}
		desc := q.bands[p].Remove(front).(Descriptor)
		delete(q.index, desc.ID)
		q.queued.Add(-1)
		return desc, true
	}
	return Descriptor{}, false
}

// DequeueNext blocks until a job can be admitted, then marks it running.
// The returned job's context derives from ctx and is cancelled by Cancel.
// It returns ErrQueueClosed once the queue is closed, or ctx.Err().
func (q *PriorityQueue) DequeueNext(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	for {
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			q.mu.Unlock()
			return nil, err
		}
		if len(q.running) < q.maxConcurrent {
			if desc, ok := q.popLocked(); ok {
				jobCtx, cancel := context.WithCancel(ctx)
				q.running[desc.ID] = &runningJob{cancel: cancel}
				q.inFlight.Add(1)
				q.mu.Unlock()
				return &Job{Descriptor: desc, ctx: jobCtx}, nil
			}
		}

		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		q.mu.Lock()
	}
}

// Done releases the execution slot held by id
func (q *PriorityQueue) Done(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rj, ok := q.running[id]
	if !ok {
		return
	}
	rj.cancel()
	delete(q.running, id)
	q.inFlight.Add(-1)
	q.broadcast()
}

// Cancel removes a queued job or signals a running one.
// For CancelRemoved the removed descriptor is returned.
func (q *PriorityQueue) Cancel(id string) (Descriptor, CancelOutcome) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if elem, ok := q.index[id]; ok {
		desc := elem.Value.(Descriptor)
		q.bands[desc.Priority].Remove(elem)
		delete(q.index, id)
		q.queued.Add(-1)
		return desc, CancelRemoved
	}

	if rj, ok := q.running[id]; ok && !rj.cancelled {
		rj.cancelled = true
		rj.cancel()
		return Descriptor{}, CancelSignalled
	}

	return Descriptor{}, CancelNone
}

// Stats returns occupancy counters without scanning the queue
func (q *PriorityQueue) Stats() Stats {
	running := int(q.inFlight.Load())
	return Stats{
		Queued:         int(q.queued.Load()),
		Running:        running,
		MaxConcurrent:  q.maxConcurrent,
		AvailableSlots: max(q.maxConcurrent-running, 0),
	}
}

// Close stops admission. Queued jobs are drained and returned so the caller
// can settle their records; running jobs are left to finish.
func (q *PriorityQueue) Close() []Descriptor {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var drained []Descriptor
	for {
		desc, ok := q.popLocked()
		if !ok {
			break
		}
		drained = append(drained, desc)
	}
	q.broadcast()
	q.logger.Info("task queue closed", "drained", len(drained))
	return drained
}
