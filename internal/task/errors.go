package task

import "errors"

// Common errors returned by the task package
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")

	// ErrNotFound is returned for ids that never existed or have been evicted
	ErrNotFound = errors.New("task not found")

	ErrUnknownTaskType   = errors.New("unknown task type")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminalState     = errors.New("task is in a terminal state")
	ErrDuplicateTask     = errors.New("task already exists")
	ErrResultExists      = errors.New("result already recorded")
	ErrNilExecutor       = errors.New("executor cannot be nil")
)
