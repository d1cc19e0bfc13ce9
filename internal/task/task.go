package task

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Priority orders pending work. Higher values are admitted first.
type Priority int

// Priority levels, lowest to highest
const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// numPriorities is the number of priority bands held by the queue
const numPriorities = int(PriorityUrgent) + 1

var priorityNames = [numPriorities]string{"low", "normal", "high", "urgent"}

// String returns the lowercase name of the priority
func (p Priority) String() string {
	if !p.Valid() {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is one of the defined priority levels
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// ParsePriority converts a case-insensitive priority name to a Priority.
// An empty string maps to PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range priorityNames {
		if n == name {
			return Priority(i), nil
		}
	}
	return PriorityNormal, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Status represents the lifecycle state of a task
type Status string

// Possible task status values
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// canTransition encodes the task state machine.
// QUEUED -> FAILED covers tasks rejected at dispatch without being executed.
func canTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning || to == StatusCancelled || to == StatusFailed
	case StatusRunning:
		return to == StatusSucceeded || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}

// Task type constants
const (
	// TypeContentGeneration produces marketing copy with a language model
	TypeContentGeneration = "content_generation"

	// TypeAnalytics computes campaign performance metrics
	TypeAnalytics = "analytics"

	// TypeKnowledgeIndexing chunks and embeds documents for retrieval
	TypeKnowledgeIndexing = "knowledge_indexing"
)

// Descriptor is the immutable record of a submitted unit of work.
// All mutable state lives in the ProgressTracker and ResultStore, keyed by ID.
type Descriptor struct {
	ID          string
	Type        string
	Parameters  map[string]any
	OwnerID     string
	Priority    Priority
	SubmittedAt time.Time
}

// newDescriptor copies params so later mutation by the caller cannot leak in
func newDescriptor(id, taskType string, params map[string]any, ownerID string, priority Priority, now time.Time) Descriptor {
	return Descriptor{
		ID:          id,
		Type:        taskType,
		Parameters:  maps.Clone(params),
		OwnerID:     ownerID,
		Priority:    priority,
		SubmittedAt: now,
	}
}

// ProgressReporter lets a running unit of work publish advisory progress.
// Report returns a non-nil error once the task has been cancelled; executors
// should stop at that point and return the error.
type ProgressReporter interface {
	Report(percent int, message string) error
}

// Executor runs one kind of unit of work.
// ctx is cancelled when the task is cancelled or the pool shuts down.
type Executor interface {
	Execute(ctx context.Context, params map[string]any, progress ProgressReporter) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface
type ExecutorFunc func(ctx context.Context, params map[string]any, progress ProgressReporter) (any, error)

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, params map[string]any, progress ProgressReporter) (any, error) {
	return f(ctx, params, progress)
}

// SubmitRequest carries everything needed to create a task
type SubmitRequest struct {
	Type       string
	Parameters map[string]any
	OwnerID    string
	Priority   Priority
}

// Service is the entry point used by transport layers
type Service interface {
	// Submit creates a task and queues it; it never blocks on execution
	Submit(ctx context.Context, req SubmitRequest) (string, error)

	// GetProgress returns the current progress snapshot or ErrNotFound
	GetProgress(id string) (ProgressRecord, error)

	// GetResult returns the terminal outcome or ErrNotFound
	GetResult(id string) (ResultRecord, error)

	// Cancel reports whether a cancellation signal reached a queued or running task
	Cancel(id string) bool

	// QueueStats returns a cheap snapshot of queue occupancy
	QueueStats() Stats

	// ListByOwner returns progress records for the given owner
	ListByOwner(ownerID string) []ProgressRecord
}
