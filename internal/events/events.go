package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskCompletedEvent announces that a background task reached a terminal
// state. It carries plain values so consumers need no dependency on the
// task package.
type TaskCompletedEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	TaskID   string `json:"task_id"`
	TaskType string `json:"task_type"`
	OwnerID  string `json:"owner_id"`

	// Status is the terminal status name: succeeded, failed or cancelled
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskCompletedEvent creates a TaskCompletedEvent with a fresh event ID.
func NewTaskCompletedEvent(taskID, taskType, ownerID, status, message, errMsg string) *TaskCompletedEvent {
	return &TaskCompletedEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		TaskType:  taskType,
		OwnerID:   ownerID,
		Status:    status,
		Message:   message,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskCompletedEvent) error
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskCompletedEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskCompletedEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskCompletedEvent) error
}
